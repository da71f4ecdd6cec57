package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/murshop24/admin/internal/models"
)

const (
	banksURL        = "/admin/banks"
	bankAccountsURL = "/admin/bank-accounts"
	qiwiURL         = "/admin/qiwi-accounts"
)

// GET /admin/banks
func (a *Admin) Banks(w http.ResponseWriter, r *http.Request) {
	var banks []models.Bank
	if err := a.db.WithContext(r.Context()).Order("name").Find(&banks).Error; err != nil {
		a.dbError(w, err)
		return
	}
	vm := listVM{Heading: "Banks", NewURL: banksURL + "/new", Columns: []string{"Name"}}
	for _, b := range banks {
		vm.Rows = append(vm.Rows, listRow{
			Cells:     []string{b.Name},
			EditURL:   actionURL(banksURL, b.ID),
			DeleteURL: actionURL(banksURL, b.ID) + "/delete",
		})
	}
	a.views.Render(w, http.StatusOK, "admin/list.tmpl", pageData(r, "Banks", vm))
}

// GET /admin/banks/new, GET /admin/banks/{id}
func (a *Admin) BankForm(w http.ResponseWriter, r *http.Request) {
	var b models.Bank
	if !a.loadByID(w, r, &b) {
		return
	}
	a.renderBankForm(w, r, http.StatusOK, b, "")
}

// POST /admin/banks, POST /admin/banks/{id}
func (a *Admin) BankSave(w http.ResponseWriter, r *http.Request) {
	var b models.Bank
	if !a.loadByID(w, r, &b) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b.Name = strings.TrimSpace(r.PostForm.Get("name"))
	if b.Name == "" {
		a.renderBankForm(w, r, http.StatusUnprocessableEntity, b, "Name is required.")
		return
	}
	if err := a.db.WithContext(r.Context()).Save(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			a.renderBankForm(w, r, http.StatusUnprocessableEntity, b, "A bank with this name already exists.")
			return
		}
		a.dbError(w, err)
		return
	}
	http.Redirect(w, r, banksURL+"?ok=saved", http.StatusSeeOther)
}

// POST /admin/banks/{id}/delete
func (a *Admin) BankDelete(w http.ResponseWriter, r *http.Request) {
	a.deleteByID(w, r, &models.Bank{}, banksURL)
}

func (a *Admin) renderBankForm(w http.ResponseWriter, r *http.Request, status int, b models.Bank, errMsg string) {
	vm := formVM{
		Heading: "Bank",
		Action:  actionURL(banksURL, b.ID),
		BackURL: banksURL,
		Error:   errMsg,
		Fields:  []field{{Name: "name", Label: "Name", Type: "text", Value: b.Name, Required: true}},
	}
	if b.ID != 0 {
		vm.DeleteURL = actionURL(banksURL, b.ID) + "/delete"
	}
	a.views.Render(w, status, "admin/form.tmpl", pageData(r, "Bank", vm))
}

// GET /admin/bank-accounts
func (a *Admin) BankAccounts(w http.ResponseWriter, r *http.Request) {
	var accs []models.BankAccount
	if err := a.db.WithContext(r.Context()).Preload("Bank").Order("id").Find(&accs).Error; err != nil {
		a.dbError(w, err)
		return
	}
	vm := listVM{
		Heading: "Bank accounts",
		NewURL:  bankAccountsURL + "/new",
		Columns: []string{"Card number", "Phone number", "Bank"},
	}
	for _, acc := range accs {
		vm.Rows = append(vm.Rows, listRow{
			Cells:     []string{acc.CardNumber, acc.PhoneNumber, acc.Bank.Name},
			EditURL:   actionURL(bankAccountsURL, acc.ID),
			DeleteURL: actionURL(bankAccountsURL, acc.ID) + "/delete",
		})
	}
	a.views.Render(w, http.StatusOK, "admin/list.tmpl", pageData(r, "Bank accounts", vm))
}

// GET /admin/bank-accounts/new, GET /admin/bank-accounts/{id}
func (a *Admin) BankAccountForm(w http.ResponseWriter, r *http.Request) {
	var acc models.BankAccount
	if !a.loadByID(w, r, &acc) {
		return
	}
	a.renderBankAccountForm(w, r, http.StatusOK, acc, "")
}

// POST /admin/bank-accounts, POST /admin/bank-accounts/{id}
func (a *Admin) BankAccountSave(w http.ResponseWriter, r *http.Request) {
	var acc models.BankAccount
	if !a.loadByID(w, r, &acc) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	acc.CardNumber = strings.TrimSpace(r.PostForm.Get("card_number"))
	acc.PhoneNumber = strings.TrimSpace(r.PostForm.Get("phone_number"))
	bankID, ok := requiredUint(r.PostForm.Get("bank_id"))
	acc.BankID = bankID
	acc.Bank = models.Bank{}
	if acc.CardNumber == "" || !ok {
		a.renderBankAccountForm(w, r, http.StatusUnprocessableEntity, acc, "Card number and bank are required.")
		return
	}
	if err := a.db.WithContext(r.Context()).Omit("Bank").Save(&acc).Error; err != nil {
		a.dbError(w, err)
		return
	}
	http.Redirect(w, r, bankAccountsURL+"?ok=saved", http.StatusSeeOther)
}

// POST /admin/bank-accounts/{id}/delete
func (a *Admin) BankAccountDelete(w http.ResponseWriter, r *http.Request) {
	a.deleteByID(w, r, &models.BankAccount{}, bankAccountsURL)
}

func (a *Admin) renderBankAccountForm(w http.ResponseWriter, r *http.Request, status int, acc models.BankAccount, errMsg string) {
	banks, err := a.bankOptions(r.Context())
	if err != nil {
		a.dbError(w, err)
		return
	}
	vm := formVM{
		Heading: "Bank account",
		Action:  actionURL(bankAccountsURL, acc.ID),
		BackURL: bankAccountsURL,
		Error:   errMsg,
		Fields: []field{
			{Name: "card_number", Label: "Card number", Type: "text", Value: acc.CardNumber, Required: true},
			{Name: "phone_number", Label: "Phone number", Type: "text", Value: acc.PhoneNumber},
			{Name: "bank_id", Label: "Bank", Type: "select", Required: true,
				Options: selectOptions(banks, idString(acc.BankID))},
		},
	}
	if acc.ID != 0 {
		vm.DeleteURL = actionURL(bankAccountsURL, acc.ID) + "/delete"
	}
	a.views.Render(w, status, "admin/form.tmpl", pageData(r, "Bank account", vm))
}

func (a *Admin) bankOptions(ctx context.Context) ([]option, error) {
	var banks []models.Bank
	if err := a.db.WithContext(ctx).Order("name").Find(&banks).Error; err != nil {
		return nil, err
	}
	out := make([]option, 0, len(banks))
	for _, b := range banks {
		out = append(out, option{Value: idString(b.ID), Label: b.Name})
	}
	return out, nil
}

// GET /admin/qiwi-accounts
func (a *Admin) QiwiAccounts(w http.ResponseWriter, r *http.Request) {
	var accs []models.QiwiWalletAccount
	if err := a.db.WithContext(r.Context()).Order("id").Find(&accs).Error; err != nil {
		a.dbError(w, err)
		return
	}
	vm := listVM{
		Heading: "Qiwi wallet accounts",
		NewURL:  qiwiURL + "/new",
		Columns: []string{"Phone number", "Nickname"},
	}
	for _, acc := range accs {
		vm.Rows = append(vm.Rows, listRow{
			Cells:     []string{acc.PhoneNumber, acc.Nickname},
			EditURL:   actionURL(qiwiURL, acc.ID),
			DeleteURL: actionURL(qiwiURL, acc.ID) + "/delete",
		})
	}
	a.views.Render(w, http.StatusOK, "admin/list.tmpl", pageData(r, "Qiwi wallet accounts", vm))
}

// GET /admin/qiwi-accounts/new, GET /admin/qiwi-accounts/{id}
func (a *Admin) QiwiAccountForm(w http.ResponseWriter, r *http.Request) {
	var acc models.QiwiWalletAccount
	if !a.loadByID(w, r, &acc) {
		return
	}
	a.renderQiwiForm(w, r, http.StatusOK, acc, "")
}

// POST /admin/qiwi-accounts, POST /admin/qiwi-accounts/{id}
func (a *Admin) QiwiAccountSave(w http.ResponseWriter, r *http.Request) {
	var acc models.QiwiWalletAccount
	if !a.loadByID(w, r, &acc) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	acc.PhoneNumber = strings.TrimSpace(r.PostForm.Get("phone_number"))
	acc.Nickname = strings.TrimSpace(r.PostForm.Get("nickname"))
	if acc.PhoneNumber == "" {
		a.renderQiwiForm(w, r, http.StatusUnprocessableEntity, acc, "Phone number is required.")
		return
	}
	if err := a.db.WithContext(r.Context()).Save(&acc).Error; err != nil {
		a.dbError(w, err)
		return
	}
	http.Redirect(w, r, qiwiURL+"?ok=saved", http.StatusSeeOther)
}

// POST /admin/qiwi-accounts/{id}/delete
func (a *Admin) QiwiAccountDelete(w http.ResponseWriter, r *http.Request) {
	a.deleteByID(w, r, &models.QiwiWalletAccount{}, qiwiURL)
}

func (a *Admin) renderQiwiForm(w http.ResponseWriter, r *http.Request, status int, acc models.QiwiWalletAccount, errMsg string) {
	vm := formVM{
		Heading: "Qiwi wallet account",
		Action:  actionURL(qiwiURL, acc.ID),
		BackURL: qiwiURL,
		Error:   errMsg,
		Fields: []field{
			{Name: "phone_number", Label: "Phone number", Type: "text", Value: acc.PhoneNumber, Required: true},
			{Name: "nickname", Label: "Nickname", Type: "text", Value: acc.Nickname},
		},
	}
	if acc.ID != 0 {
		vm.DeleteURL = actionURL(qiwiURL, acc.ID) + "/delete"
	}
	a.views.Render(w, status, "admin/form.tmpl", pageData(r, "Qiwi wallet account", vm))
}

func idString(id uint) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}
