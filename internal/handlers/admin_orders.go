package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/murshop24/admin/internal/models"
)

const ordersURL = "/admin/orders"

var orderColumns = []string{
	"ID", "Price", "Status", "Created at", "Customer", "District",
	"Product unit", "Bank account", "Qiwi wallet",
}

// ordersQuery applies the ?status= filter shared by the list and the CSV.
func (a *Admin) ordersQuery(r *http.Request) *gorm.DB {
	q := a.db.WithContext(r.Context()).Model(&models.Order{})
	if st := r.URL.Query().Get("status"); slices.Contains(models.OrderStatuses, st) {
		q = q.Where("status = ?", st)
	}
	return q
}

func preloadOrder(q *gorm.DB) *gorm.DB {
	return q.Preload("TgCustomer").
		Preload("District.City").
		Preload("ProductUnit.Product").
		Preload("BankAccount.Bank").
		Preload("QiwiWalletAccount")
}

func orderCells(o models.Order) []string {
	bank, qiwi := "", ""
	if o.BankAccount != nil {
		bank = strings.TrimSpace(o.BankAccount.Bank.Name + " " + o.BankAccount.CardNumber)
	}
	if o.QiwiWalletAccount != nil {
		qiwi = o.QiwiWalletAccount.PhoneNumber
	}
	return []string{
		strconv.FormatUint(uint64(o.ID), 10),
		o.Price.StringFixed(2),
		o.Status,
		fmtDateTime(o.CreatedAt),
		customerLabel(o.TgCustomer),
		districtLabel(o.District),
		o.ProductUnit.Label(),
		bank,
		qiwi,
	}
}

func customerLabel(c models.TgCustomer) string {
	if c.TgUsername != "" {
		return "@" + c.TgUsername
	}
	return strings.TrimSpace(c.TgFirstName + " " + c.TgLastName)
}

// GET /admin/orders?status=&page=&per=
//
// Orders are placed through the shop bots. Staff can only move them between
// statuses here.
func (a *Admin) Orders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	per, _ := strconv.Atoi(r.URL.Query().Get("per"))
	if page < 1 {
		page = 1
	}
	if per < 1 || per > 200 {
		per = 50
	}
	offset := (page - 1) * per

	var total int64
	if err := a.ordersQuery(r).Count(&total).Error; err != nil {
		a.dbError(w, err)
		return
	}
	var orders []models.Order
	if err := preloadOrder(a.ordersQuery(r)).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(per).
		Find(&orders).Error; err != nil {
		a.dbError(w, err)
		return
	}

	csvURL := ordersURL + ".csv"
	if st := r.URL.Query().Get("status"); st != "" {
		csvURL += "?status=" + url.QueryEscape(st)
	}
	vm := listVM{
		Heading: "Orders",
		Columns: orderColumns,
		Links:   []menuLink{{Label: "Export CSV", URL: csvURL}},
		Page:    page,
		Pages:   int((total + int64(per) - 1) / int64(per)),
	}
	for _, st := range models.OrderStatuses {
		vm.Links = append(vm.Links, menuLink{Label: st, URL: ordersURL + "?status=" + st})
	}
	if page > 1 {
		vm.PrevURL = pageURL(r, page-1)
	}
	if int64(offset+per) < total {
		vm.NextURL = pageURL(r, page+1)
	}
	for _, o := range orders {
		vm.Rows = append(vm.Rows, listRow{
			Cells:   orderCells(o),
			EditURL: actionURL(ordersURL, o.ID),
		})
	}
	a.views.Render(w, http.StatusOK, "admin/list.tmpl", pageData(r, "Orders", vm))
}

func pageURL(r *http.Request, page int) string {
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	return r.URL.Path + "?" + q.Encode()
}

// GET /admin/orders/{id}
func (a *Admin) OrderForm(w http.ResponseWriter, r *http.Request) {
	var o models.Order
	if !a.loadByID(w, r, &o, "TgCustomer", "District.City", "ProductUnit.Product",
		"BankAccount.Bank", "QiwiWalletAccount") {
		return
	}
	a.renderOrderForm(w, r, http.StatusOK, o, "")
}

// POST /admin/orders/{id}
func (a *Admin) OrderSave(w http.ResponseWriter, r *http.Request) {
	var o models.Order
	if !a.loadByID(w, r, &o, "TgCustomer", "District.City", "ProductUnit.Product",
		"BankAccount.Bank", "QiwiWalletAccount") {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	status := r.PostForm.Get("status")
	if !slices.Contains(models.OrderStatuses, status) {
		a.renderOrderForm(w, r, http.StatusUnprocessableEntity, o, "Unknown status.")
		return
	}
	if err := a.db.WithContext(r.Context()).Model(&models.Order{ID: o.ID}).Update("status", status).Error; err != nil {
		a.dbError(w, err)
		return
	}
	http.Redirect(w, r, actionURL(ordersURL, o.ID)+"?ok=saved", http.StatusSeeOther)
}

func (a *Admin) renderOrderForm(w http.ResponseWriter, r *http.Request, status int, o models.Order, errMsg string) {
	cells := orderCells(o)
	vm := formVM{
		Heading: "Order #" + cells[0],
		Action:  actionURL(ordersURL, o.ID),
		BackURL: ordersURL,
		Error:   errMsg,
	}
	// Everything but the status is read-only.
	for i, col := range orderColumns {
		if col == "Status" || col == "ID" {
			continue
		}
		vm.Fields = append(vm.Fields, field{Label: col, Type: "readonly", Value: cells[i]})
	}
	opts := make([]option, 0, len(models.OrderStatuses))
	for _, st := range models.OrderStatuses {
		opts = append(opts, option{Value: st, Label: st, Selected: st == o.Status})
	}
	vm.Fields = append(vm.Fields, field{Name: "status", Label: "Status", Type: "select", Required: true, Options: opts})
	a.views.Render(w, status, "admin/form.tmpl", pageData(r, "Order", vm))
}

// GET /admin/orders.csv?status=
func (a *Admin) OrdersCSV(w http.ResponseWriter, r *http.Request) {
	var orders []models.Order
	if err := preloadOrder(a.ordersQuery(r)).
		Order("created_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		a.dbError(w, err)
		return
	}

	filename := fmt.Sprintf("orders-%s.csv", time.Now().In(tzAlmaty).Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	if err := writeOrdersCSV(w, orders); err != nil {
		// Headers are out; the client sees a truncated file.
		a.log.Warn("orders csv write failed", zap.Int("orders", len(orders)), zap.Error(err))
	}
}

func writeOrdersCSV(w io.Writer, orders []models.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(orderColumns); err != nil {
		return err
	}
	for _, o := range orders {
		if err := cw.Write(orderCells(o)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
