package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/murshop24/admin/internal/models"
)

const productsURL = "/admin/products"

var unitCols = []string{"count", "count_type"}

// GET /admin/products
func (a *Admin) Products(w http.ResponseWriter, r *http.Request) {
	var products []models.Product
	if err := a.db.WithContext(r.Context()).
		Preload("ProductUnits", func(db *gorm.DB) *gorm.DB { return db.Order("count") }).
		Order("name").Find(&products).Error; err != nil {
		a.dbError(w, err)
		return
	}
	vm := listVM{
		Heading: "Products",
		NewURL:  productsURL + "/new",
		Columns: []string{"Name", "Description", "Units"},
	}
	for _, p := range products {
		units := make([]string, 0, len(p.ProductUnits))
		for _, u := range p.ProductUnits {
			u.Product = models.Product{Name: p.Name}
			units = append(units, u.Label())
		}
		vm.Rows = append(vm.Rows, listRow{
			Cells:     []string{p.Name, p.Description, strings.Join(units, ", ")},
			EditURL:   actionURL(productsURL, p.ID),
			DeleteURL: actionURL(productsURL, p.ID) + "/delete",
		})
	}
	a.views.Render(w, http.StatusOK, "admin/list.tmpl", pageData(r, "Products", vm))
}

// GET /admin/products/new, GET /admin/products/{id}
func (a *Admin) ProductForm(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if !a.loadByID(w, r, &p, "ProductUnits") {
		return
	}
	ids := make([]uint, 0, len(p.ProductUnits))
	values := make([][]string, 0, len(p.ProductUnits))
	for _, u := range p.ProductUnits {
		ids = append(ids, u.ID)
		values = append(values, []string{u.Count.String(), u.CountType})
	}
	a.renderProductForm(w, r, http.StatusOK, p, ids, values, "")
}

// POST /admin/products, POST /admin/products/{id}
func (a *Admin) ProductSave(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if !a.loadByID(w, r, &p, "ProductUnits") {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.Name = strings.TrimSpace(r.PostForm.Get("name"))
	p.Description = strings.TrimSpace(r.PostForm.Get("description"))
	rows := parseInline(r, "u", unitCols)

	owned := make(map[uint]bool, len(p.ProductUnits))
	for _, u := range p.ProductUnits {
		owned[u.ID] = true
	}

	var (
		ids    []uint
		values [][]string
		units  []models.ProductUnit
		errMsg string
	)
	for _, row := range rows {
		var id uint
		if row.ID != nil {
			id = *row.ID
			if !owned[id] {
				errMsg = "Unit does not belong to this product."
			}
		}
		ids = append(ids, id)
		values = append(values, row.Values)

		unit := models.ProductUnit{ID: id, ProductID: p.ID, CountType: row.Values[1]}
		if !row.Delete {
			count, ok := parseDecimal(row.Values[0])
			if !ok || !count.IsPositive() {
				errMsg = "Unit count must be a positive number."
			}
			if !slices.Contains(models.CountTypes, unit.CountType) {
				errMsg = "Unknown count type."
			}
			unit.Count = count
		}
		units = append(units, unit)
	}
	if p.Name == "" {
		errMsg = "Name is required."
	}
	if errMsg != "" {
		a.renderProductForm(w, r, http.StatusUnprocessableEntity, p, ids, values, errMsg)
		return
	}

	err := a.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("ProductUnits").Save(&p).Error; err != nil {
			return err
		}
		for i, row := range rows {
			u := units[i]
			u.ProductID = p.ID
			switch {
			case row.ID == nil:
				if err := tx.Create(&u).Error; err != nil {
					return err
				}
			case row.Delete:
				if err := tx.Delete(&models.ProductUnit{}, u.ID).Error; err != nil {
					return err
				}
			default:
				if err := tx.Model(&models.ProductUnit{ID: u.ID}).
					Updates(map[string]any{"count": u.Count, "count_type": u.CountType}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			a.renderProductForm(w, r, http.StatusUnprocessableEntity, p, ids, values, "A unit in use by prices or orders cannot be deleted.")
			return
		}
		a.dbError(w, err)
		return
	}
	http.Redirect(w, r, actionURL(productsURL, p.ID)+"?ok=saved", http.StatusSeeOther)
}

// POST /admin/products/{id}/delete
func (a *Admin) ProductDelete(w http.ResponseWriter, r *http.Request) {
	a.deleteByID(w, r, &models.Product{}, productsURL, "ProductUnits")
}

func (a *Admin) renderProductForm(w http.ResponseWriter, r *http.Request, status int, p models.Product, ids []uint, values [][]string, errMsg string) {
	cols := []inlineColumn{{Label: "Count"}, {Label: "Count type", Options: models.CountTypes}}
	vm := formVM{
		Heading: "Product",
		Action:  actionURL(productsURL, p.ID),
		BackURL: productsURL,
		Error:   errMsg,
		Fields: []field{
			{Name: "name", Label: "Name", Type: "text", Value: p.Name, Required: true},
			{Name: "description", Label: "Description", Type: "textarea", Value: p.Description},
		},
		Inline: newInline("Units", "u", cols, unitCols, values, ids),
	}
	if p.ID != 0 {
		vm.DeleteURL = actionURL(productsURL, p.ID) + "/delete"
	}
	a.views.Render(w, status, "admin/form.tmpl", pageData(r, "Product", vm))
}
