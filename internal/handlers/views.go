package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"
)

// Views holds one parsed template set per admin page. Layouts and partials
// are shared; each page is cloned on top of them at startup.
type Views struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"year":        func() string { return time.Now().Format("2006") },
	"fmtDateTime": fmtDateTime,
}

// NewViews parses layouts/*.tmpl, partials/*.tmpl and pages/admin/*.tmpl
// from fsys. Page names are "admin/<file>".
func NewViews(fsys fs.FS) (*Views, error) {
	base := template.New("").Funcs(funcs)
	base, err := base.ParseFS(fsys, "layouts/*.tmpl", "partials/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse layouts: %w", err)
	}

	files, err := fs.Glob(fsys, "pages/admin/*.tmpl")
	if err != nil {
		return nil, err
	}
	v := &Views{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		page, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := page.ParseFS(fsys, f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		v.pages["admin/"+path.Base(f)] = page
	}
	return v, nil
}

// Render executes the page into a buffer so a template error never leaves a
// half-written 200 behind.
func (v *Views) Render(w http.ResponseWriter, status int, name string, data any) {
	page, ok := v.pages[name]
	if !ok {
		http.Error(w, "template "+name+" not found", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type menuSection struct {
	Title string
	Links []menuLink
}

type menuLink struct {
	Label string
	URL   string
}

var menu = []menuSection{
	{Title: "Telegram", Links: []menuLink{
		{"Operators", "/admin/operators"},
		{"Reviews channels", "/admin/reviews-channels"},
		{"Bots", "/admin/bots"},
		{"Customers", "/admin/customers"},
	}},
	{Title: "Product", Links: []menuLink{
		{"Products", "/admin/products"},
		{"Prices", "/admin/prices"},
	}},
	{Title: "Payment", Links: []menuLink{
		{"Banks", "/admin/banks"},
		{"Bank accounts", "/admin/bank-accounts"},
		{"Qiwi wallet accounts", "/admin/qiwi-accounts"},
	}},
	{Title: "Shop", Links: []menuLink{
		{"Cities", "/admin/cities"},
		{"Orders", "/admin/orders"},
	}},
}

// listVM drives pages/admin/list.tmpl.
type listVM struct {
	Heading string
	NewURL  string // empty hides "Add"
	Columns []string
	Rows    []listRow
	Links   []menuLink

	Page, Pages int
	PrevURL     string
	NextURL     string
}

type listRow struct {
	Cells     []string
	EditURL   string
	DeleteURL string
}

// formVM drives pages/admin/form.tmpl.
type formVM struct {
	Heading   string
	Action    string
	DeleteURL string
	BackURL   string
	Error     string
	ImageURL  string
	Fields    []field
	Inline    *inlineVM
}

type field struct {
	Name     string
	Label    string
	Type     string // text | textarea | select | readonly
	Value    string
	Required bool
	Options  []option
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

// inlineVM is an editable child table posted as parallel arrays:
// <prefix>_id[], one <prefix>_<col>[] per column and <prefix>_delete_<i>.
type inlineVM struct {
	Heading string
	Columns []inlineColumn
	Rows    []inlineRow
}

type inlineColumn struct {
	Label   string
	Options []string // non-empty renders a select
}

type inlineRow struct {
	IDName     string
	ID         string
	Cells      []inlineCell
	DeleteName string
}

type inlineCell struct {
	Name    string
	Value   string
	Options []option
}

// blankInlineRows is how many empty child rows a form offers for additions.
const blankInlineRows = 3

// newInline lays out existing rows (ids[i] == 0 for unsaved ones) followed
// by blank rows for additions.
func newInline(heading, prefix string, cols []inlineColumn, colNames []string, values [][]string, ids []uint) *inlineVM {
	vm := &inlineVM{Heading: heading, Columns: cols}
	total := len(values) + blankInlineRows
	for i := 0; i < total; i++ {
		row := inlineRow{
			IDName:     prefix + "_id",
			DeleteName: fmt.Sprintf("%s_delete_%d", prefix, i),
		}
		if i < len(ids) {
			row.ID = idString(ids[i])
		}
		for c, col := range cols {
			cell := inlineCell{Name: prefix + "_" + colNames[c]}
			if i < len(values) {
				cell.Value = values[i][c]
			}
			for _, o := range col.Options {
				cell.Options = append(cell.Options, option{Value: o, Label: o, Selected: o == cell.Value})
			}
			row.Cells = append(row.Cells, cell)
		}
		vm.Rows = append(vm.Rows, row)
	}
	return vm
}

// inlineSubmission is one posted child row.
type inlineSubmission struct {
	ID     *uint
	Values []string
	Delete bool
}

// parseInline reads the rows posted by an inline table, skipping blank new
// rows. r.ParseForm must have run.
func parseInline(r *http.Request, prefix string, colNames []string) []inlineSubmission {
	ids := r.PostForm[prefix+"_id"]
	cols := make([][]string, len(colNames))
	for c, name := range colNames {
		cols[c] = r.PostForm[prefix+"_"+name]
	}
	var out []inlineSubmission
	for i := range ids {
		sub := inlineSubmission{
			ID:     optionalUint(ids[i]),
			Delete: r.PostForm.Get(fmt.Sprintf("%s_delete_%d", prefix, i)) != "",
		}
		blank := true
		for c := range colNames {
			v := strings.TrimSpace(at(cols[c], i))
			if c == 0 && v != "" {
				blank = false
			}
			sub.Values = append(sub.Values, v)
		}
		if sub.ID == nil && (blank || sub.Delete) {
			continue
		}
		out = append(out, sub)
	}
	return out
}

func selectOptions(opts []option, selected string) []option {
	out := make([]option, 0, len(opts)+1)
	out = append(out, option{Value: "", Label: "---", Selected: selected == ""})
	for _, o := range opts {
		o.Selected = o.Value == selected
		out = append(out, o)
	}
	return out
}

func pageData(r *http.Request, title string, vm any) map[string]any {
	return map[string]any{
		"Title": "Admin • " + title,
		"Menu":  menu,
		"Flash": MakeFlash(r, "", ""),
		"VM":    vm,
	}
}
