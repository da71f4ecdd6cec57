package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/murshop24/admin/internal/models"
)

const citiesURL = "/admin/cities"

var districtCols = []string{"name"}

// GET /admin/cities
func (a *Admin) Cities(w http.ResponseWriter, r *http.Request) {
	var cities []models.City
	if err := a.db.WithContext(r.Context()).
		Preload("Districts", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Order("name").Find(&cities).Error; err != nil {
		a.dbError(w, err)
		return
	}
	vm := listVM{Heading: "Cities", NewURL: citiesURL + "/new", Columns: []string{"Name", "Districts"}}
	for _, c := range cities {
		names := make([]string, 0, len(c.Districts))
		for _, d := range c.Districts {
			names = append(names, d.Name)
		}
		vm.Rows = append(vm.Rows, listRow{
			Cells:     []string{c.Name, strings.Join(names, ", ")},
			EditURL:   actionURL(citiesURL, c.ID),
			DeleteURL: actionURL(citiesURL, c.ID) + "/delete",
		})
	}
	a.views.Render(w, http.StatusOK, "admin/list.tmpl", pageData(r, "Cities", vm))
}

// GET /admin/cities/new, GET /admin/cities/{id}
func (a *Admin) CityForm(w http.ResponseWriter, r *http.Request) {
	var city models.City
	if !a.loadByID(w, r, &city, "Districts") {
		return
	}
	ids := make([]uint, 0, len(city.Districts))
	values := make([][]string, 0, len(city.Districts))
	for _, d := range city.Districts {
		ids = append(ids, d.ID)
		values = append(values, []string{d.Name})
	}
	a.renderCityForm(w, r, http.StatusOK, city, ids, values, "")
}

// POST /admin/cities, POST /admin/cities/{id}
//
// The city and its district rows are written in one transaction.
func (a *Admin) CitySave(w http.ResponseWriter, r *http.Request) {
	var city models.City
	if !a.loadByID(w, r, &city, "Districts") {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	city.Name = strings.TrimSpace(r.PostForm.Get("name"))
	rows := parseInline(r, "d", districtCols)

	owned := make(map[uint]bool, len(city.Districts))
	for _, d := range city.Districts {
		owned[d.ID] = true
	}

	var (
		ids    []uint
		values [][]string
		errMsg string
	)
	for _, row := range rows {
		var id uint
		if row.ID != nil {
			id = *row.ID
			if !owned[id] {
				errMsg = "District " + strconv.FormatUint(uint64(id), 10) + " does not belong to this city."
			}
		}
		if !row.Delete && row.Values[0] == "" {
			errMsg = "District name is required."
		}
		ids = append(ids, id)
		values = append(values, row.Values)
	}
	if city.Name == "" {
		errMsg = "Name is required."
	}
	if errMsg != "" {
		a.renderCityForm(w, r, http.StatusUnprocessableEntity, city, ids, values, errMsg)
		return
	}

	err := a.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Districts").Save(&city).Error; err != nil {
			return err
		}
		for _, row := range rows {
			switch {
			case row.ID == nil:
				if err := tx.Create(&models.District{Name: row.Values[0], CityID: city.ID}).Error; err != nil {
					return err
				}
			case row.Delete:
				if err := tx.Delete(&models.District{}, *row.ID).Error; err != nil {
					return err
				}
			default:
				if err := tx.Model(&models.District{ID: *row.ID}).Update("name", row.Values[0]).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			a.renderCityForm(w, r, http.StatusUnprocessableEntity, city, ids, values, "A city with this name already exists.")
			return
		}
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			a.renderCityForm(w, r, http.StatusUnprocessableEntity, city, ids, values, "A district in use by prices or orders cannot be deleted.")
			return
		}
		a.dbError(w, err)
		return
	}
	http.Redirect(w, r, actionURL(citiesURL, city.ID)+"?ok=saved", http.StatusSeeOther)
}

// POST /admin/cities/{id}/delete
func (a *Admin) CityDelete(w http.ResponseWriter, r *http.Request) {
	a.deleteByID(w, r, &models.City{}, citiesURL, "Districts")
}

func (a *Admin) renderCityForm(w http.ResponseWriter, r *http.Request, status int, city models.City, ids []uint, values [][]string, errMsg string) {
	vm := formVM{
		Heading: "City",
		Action:  actionURL(citiesURL, city.ID),
		BackURL: citiesURL,
		Error:   errMsg,
		Fields:  []field{{Name: "name", Label: "Name", Type: "text", Value: city.Name, Required: true}},
		Inline:  newInline("Districts", "d", []inlineColumn{{Label: "Name"}}, districtCols, values, ids),
	}
	if city.ID != 0 {
		vm.DeleteURL = actionURL(citiesURL, city.ID) + "/delete"
	}
	a.views.Render(w, status, "admin/form.tmpl", pageData(r, "City", vm))
}
