package handlers

import (
	"net/http"
	"strings"

	"github.com/murshop24/admin/internal/models"
)

const (
	operatorsURL = "/admin/operators"
	channelsURL  = "/admin/reviews-channels"
	customersURL = "/admin/customers"
)

// GET /admin/operators
func (a *Admin) Operators(w http.ResponseWriter, r *http.Request) {
	var ops []models.TgOperator
	if err := a.db.WithContext(r.Context()).Order("id").Find(&ops).Error; err != nil {
		a.dbError(w, err)
		return
	}
	vm := listVM{Heading: "Operators", NewURL: operatorsURL + "/new", Columns: []string{"Username"}}
	for _, o := range ops {
		vm.Rows = append(vm.Rows, listRow{
			Cells:     []string{o.TgUsername},
			EditURL:   actionURL(operatorsURL, o.ID),
			DeleteURL: actionURL(operatorsURL, o.ID) + "/delete",
		})
	}
	a.views.Render(w, http.StatusOK, "admin/list.tmpl", pageData(r, "Operators", vm))
}

// GET /admin/operators/new, GET /admin/operators/{id}
func (a *Admin) OperatorForm(w http.ResponseWriter, r *http.Request) {
	var op models.TgOperator
	if !a.loadByID(w, r, &op) {
		return
	}
	a.renderOperatorForm(w, r, http.StatusOK, op, "")
}

// POST /admin/operators, POST /admin/operators/{id}
func (a *Admin) OperatorSave(w http.ResponseWriter, r *http.Request) {
	var op models.TgOperator
	if !a.loadByID(w, r, &op) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	op.TgUsername = strings.TrimPrefix(strings.TrimSpace(r.PostForm.Get("tg_username")), "@")
	if op.TgUsername == "" {
		a.renderOperatorForm(w, r, http.StatusUnprocessableEntity, op, "Username is required.")
		return
	}
	if err := a.db.WithContext(r.Context()).Save(&op).Error; err != nil {
		a.dbError(w, err)
		return
	}
	http.Redirect(w, r, operatorsURL+"?ok=saved", http.StatusSeeOther)
}

// POST /admin/operators/{id}/delete
func (a *Admin) OperatorDelete(w http.ResponseWriter, r *http.Request) {
	a.deleteByID(w, r, &models.TgOperator{}, operatorsURL)
}

func (a *Admin) renderOperatorForm(w http.ResponseWriter, r *http.Request, status int, op models.TgOperator, errMsg string) {
	vm := formVM{
		Heading: "Operator",
		Action:  actionURL(operatorsURL, op.ID),
		BackURL: operatorsURL,
		Error:   errMsg,
		Fields: []field{
			{Name: "tg_username", Label: "Username", Type: "text", Value: op.TgUsername, Required: true},
		},
	}
	if op.ID != 0 {
		vm.DeleteURL = actionURL(operatorsURL, op.ID) + "/delete"
	}
	a.views.Render(w, status, "admin/form.tmpl", pageData(r, "Operator", vm))
}

// GET /admin/reviews-channels
func (a *Admin) ReviewsChannels(w http.ResponseWriter, r *http.Request) {
	var chs []models.TgReviewsChannel
	if err := a.db.WithContext(r.Context()).Order("id").Find(&chs).Error; err != nil {
		a.dbError(w, err)
		return
	}
	vm := listVM{Heading: "Reviews channels", NewURL: channelsURL + "/new", Columns: []string{"Invite link"}}
	for _, c := range chs {
		vm.Rows = append(vm.Rows, listRow{
			Cells:     []string{c.InviteLink},
			EditURL:   actionURL(channelsURL, c.ID),
			DeleteURL: actionURL(channelsURL, c.ID) + "/delete",
		})
	}
	a.views.Render(w, http.StatusOK, "admin/list.tmpl", pageData(r, "Reviews channels", vm))
}

// GET /admin/reviews-channels/new, GET /admin/reviews-channels/{id}
func (a *Admin) ReviewsChannelForm(w http.ResponseWriter, r *http.Request) {
	var ch models.TgReviewsChannel
	if !a.loadByID(w, r, &ch) {
		return
	}
	a.renderChannelForm(w, r, http.StatusOK, ch, "")
}

// POST /admin/reviews-channels, POST /admin/reviews-channels/{id}
func (a *Admin) ReviewsChannelSave(w http.ResponseWriter, r *http.Request) {
	var ch models.TgReviewsChannel
	if !a.loadByID(w, r, &ch) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ch.InviteLink = strings.TrimSpace(r.PostForm.Get("invite_link"))
	if ch.InviteLink == "" {
		a.renderChannelForm(w, r, http.StatusUnprocessableEntity, ch, "Invite link is required.")
		return
	}
	if err := a.db.WithContext(r.Context()).Save(&ch).Error; err != nil {
		a.dbError(w, err)
		return
	}
	http.Redirect(w, r, channelsURL+"?ok=saved", http.StatusSeeOther)
}

// POST /admin/reviews-channels/{id}/delete
func (a *Admin) ReviewsChannelDelete(w http.ResponseWriter, r *http.Request) {
	a.deleteByID(w, r, &models.TgReviewsChannel{}, channelsURL)
}

func (a *Admin) renderChannelForm(w http.ResponseWriter, r *http.Request, status int, ch models.TgReviewsChannel, errMsg string) {
	vm := formVM{
		Heading: "Reviews channel",
		Action:  actionURL(channelsURL, ch.ID),
		BackURL: channelsURL,
		Error:   errMsg,
		Fields: []field{
			{Name: "invite_link", Label: "Invite link", Type: "text", Value: ch.InviteLink, Required: true},
		},
	}
	if ch.ID != 0 {
		vm.DeleteURL = actionURL(channelsURL, ch.ID) + "/delete"
	}
	a.views.Render(w, status, "admin/form.tmpl", pageData(r, "Reviews channel", vm))
}

// GET /admin/customers
//
// Customers are written by the shop bots; the back-office only lists and
// deletes them.
func (a *Admin) Customers(w http.ResponseWriter, r *http.Request) {
	var cs []models.TgCustomer
	if err := a.db.WithContext(r.Context()).Order("created_at DESC").Find(&cs).Error; err != nil {
		a.dbError(w, err)
		return
	}
	vm := listVM{
		Heading: "Customers",
		Columns: []string{"First name", "Last name", "Username", "Created at"},
	}
	for _, c := range cs {
		vm.Rows = append(vm.Rows, listRow{
			Cells:     []string{c.TgFirstName, c.TgLastName, c.TgUsername, fmtDateTime(c.CreatedAt)},
			DeleteURL: actionURL(customersURL, c.ID) + "/delete",
		})
	}
	a.views.Render(w, http.StatusOK, "admin/list.tmpl", pageData(r, "Customers", vm))
}

// POST /admin/customers/{id}/delete
func (a *Admin) CustomerDelete(w http.ResponseWriter, r *http.Request) {
	a.deleteByID(w, r, &models.TgCustomer{}, customersURL)
}
