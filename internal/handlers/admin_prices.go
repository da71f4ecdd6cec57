package handlers

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/murshop24/admin/internal/models"
)

const pricesURL = "/admin/prices"

// GET /admin/prices
func (a *Admin) Prices(w http.ResponseWriter, r *http.Request) {
	var prices []models.DistrictProductUnit
	if err := a.db.WithContext(r.Context()).
		Preload("District.City").Preload("ProductUnit.Product").
		Order("id").Find(&prices).Error; err != nil {
		a.dbError(w, err)
		return
	}
	vm := listVM{
		Heading: "Prices",
		NewURL:  pricesURL + "/new",
		Columns: []string{"District", "Product unit", "Price"},
	}
	for _, p := range prices {
		vm.Rows = append(vm.Rows, listRow{
			Cells:     []string{districtLabel(p.District), p.ProductUnit.Label(), p.Price.StringFixed(2)},
			EditURL:   actionURL(pricesURL, p.ID),
			DeleteURL: actionURL(pricesURL, p.ID) + "/delete",
		})
	}
	a.views.Render(w, http.StatusOK, "admin/list.tmpl", pageData(r, "Prices", vm))
}

// GET /admin/prices/new, GET /admin/prices/{id}
func (a *Admin) PriceForm(w http.ResponseWriter, r *http.Request) {
	var p models.DistrictProductUnit
	if !a.loadByID(w, r, &p) {
		return
	}
	price := ""
	if p.ID != 0 {
		price = p.Price.StringFixed(2)
	}
	a.renderPriceForm(w, r, http.StatusOK, p, price, "")
}

// POST /admin/prices, POST /admin/prices/{id}
func (a *Admin) PriceSave(w http.ResponseWriter, r *http.Request) {
	var p models.DistrictProductUnit
	if !a.loadByID(w, r, &p) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rawPrice := r.PostForm.Get("price")
	districtID, okD := requiredUint(r.PostForm.Get("district_id"))
	unitID, okU := requiredUint(r.PostForm.Get("product_unit_id"))
	price, okP := parseDecimal(rawPrice)
	p.DistrictID, p.ProductUnitID = districtID, unitID
	p.District, p.ProductUnit = models.District{}, models.ProductUnit{}

	switch {
	case !okD || !okU:
		a.renderPriceForm(w, r, http.StatusUnprocessableEntity, p, rawPrice, "District and product unit are required.")
		return
	case !okP || price.IsNegative():
		a.renderPriceForm(w, r, http.StatusUnprocessableEntity, p, rawPrice, "Price must be a non-negative number.")
		return
	}
	p.Price = price.Round(2)

	if err := a.db.WithContext(r.Context()).Omit("District", "ProductUnit").Save(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			a.renderPriceForm(w, r, http.StatusUnprocessableEntity, p, rawPrice, "This unit already has a price in this district.")
			return
		}
		a.dbError(w, err)
		return
	}
	http.Redirect(w, r, pricesURL+"?ok=saved", http.StatusSeeOther)
}

// POST /admin/prices/{id}/delete
func (a *Admin) PriceDelete(w http.ResponseWriter, r *http.Request) {
	a.deleteByID(w, r, &models.DistrictProductUnit{}, pricesURL)
}

func (a *Admin) renderPriceForm(w http.ResponseWriter, r *http.Request, status int, p models.DistrictProductUnit, price, errMsg string) {
	districts, err := a.districtOptions(r.Context())
	if err != nil {
		a.dbError(w, err)
		return
	}
	units, err := a.unitOptions(r.Context())
	if err != nil {
		a.dbError(w, err)
		return
	}
	vm := formVM{
		Heading: "Price",
		Action:  actionURL(pricesURL, p.ID),
		BackURL: pricesURL,
		Error:   errMsg,
		Fields: []field{
			{Name: "district_id", Label: "District", Type: "select", Required: true,
				Options: selectOptions(districts, idString(p.DistrictID))},
			{Name: "product_unit_id", Label: "Product unit", Type: "select", Required: true,
				Options: selectOptions(units, idString(p.ProductUnitID))},
			{Name: "price", Label: "Price", Type: "text", Value: price, Required: true},
		},
	}
	if p.ID != 0 {
		vm.DeleteURL = actionURL(pricesURL, p.ID) + "/delete"
	}
	a.views.Render(w, status, "admin/form.tmpl", pageData(r, "Price", vm))
}

func (a *Admin) districtOptions(ctx context.Context) ([]option, error) {
	var ds []models.District
	if err := a.db.WithContext(ctx).Preload("City").Order("city_id, name").Find(&ds).Error; err != nil {
		return nil, err
	}
	out := make([]option, 0, len(ds))
	for _, d := range ds {
		out = append(out, option{Value: idString(d.ID), Label: districtLabel(d)})
	}
	return out, nil
}

func (a *Admin) unitOptions(ctx context.Context) ([]option, error) {
	var us []models.ProductUnit
	if err := a.db.WithContext(ctx).Preload("Product").Order("product_id, count").Find(&us).Error; err != nil {
		return nil, err
	}
	out := make([]option, 0, len(us))
	for _, u := range us {
		out = append(out, option{Value: idString(u.ID), Label: u.Label()})
	}
	return out, nil
}

// districtLabel renders "City, District"; City must be preloaded.
func districtLabel(d models.District) string {
	if d.City.Name == "" {
		return d.Name
	}
	return d.City.Name + ", " + d.Name
}
