package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/murshop24/admin/internal/models"
	"github.com/murshop24/admin/internal/services"
)

// Admin serves every /admin page.
type Admin struct {
	db       *gorm.DB
	bots     *services.BotService
	sessions *services.Sessions
	views    *Views
	log      *zap.Logger
	login    *loginGuard

	adminPassword string
}

func NewAdmin(db *gorm.DB, bots *services.BotService, sessions *services.Sessions, views *Views, log *zap.Logger, adminPassword string) *Admin {
	return &Admin{
		db:            db,
		bots:          bots,
		sessions:      sessions,
		views:         views,
		log:           log.Named("admin"),
		login:         newLoginGuard(),
		adminPassword: adminPassword,
	}
}

// GET /admin
func (a *Admin) Index(w http.ResponseWriter, r *http.Request) {
	type counter struct {
		Label string
		URL   string
		Count int64
	}
	items := []struct {
		label, url string
		model      any
	}{
		{"Cities", "/admin/cities", &models.City{}},
		{"Orders", "/admin/orders", &models.Order{}},
		{"Bots", "/admin/bots", &models.TgBot{}},
		{"Customers", "/admin/customers", &models.TgCustomer{}},
		{"Products", "/admin/products", &models.Product{}},
		{"Prices", "/admin/prices", &models.DistrictProductUnit{}},
	}
	counters := make([]counter, 0, len(items))
	for _, it := range items {
		var n int64
		if err := a.db.WithContext(r.Context()).Model(it.model).Count(&n).Error; err != nil {
			a.dbError(w, err)
			return
		}
		counters = append(counters, counter{Label: it.label, URL: it.url, Count: n})
	}

	var pending, stopped int64
	if err := a.db.WithContext(r.Context()).Model(&models.Order{}).Where("status = ?", models.OrderPending).Count(&pending).Error; err != nil {
		a.dbError(w, err)
		return
	}
	if err := a.db.WithContext(r.Context()).Model(&models.TgBot{}).Where("is_running = ?", false).Count(&stopped).Error; err != nil {
		a.dbError(w, err)
		return
	}

	a.views.Render(w, http.StatusOK, "admin/index.tmpl", map[string]any{
		"Title":    "Admin",
		"Menu":     menu,
		"Flash":    MakeFlash(r, "", ""),
		"Counters": counters,
		"Pending":  pending,
		"Stopped":  stopped,
	})
}

func (a *Admin) dbError(w http.ResponseWriter, err error) {
	a.log.Error("db error", zap.Error(err))
	http.Error(w, "db error", http.StatusInternalServerError)
}

// loadByID fills dst from the {id} URL param. With no param it leaves dst
// zero and reports true, so one handler serves both create and update.
func (a *Admin) loadByID(w http.ResponseWriter, r *http.Request, dst any, preload ...string) bool {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return false
	}
	q := a.db.WithContext(r.Context())
	for _, p := range preload {
		q = q.Preload(p)
	}
	if err := q.First(dst, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return false
		}
		a.dbError(w, err)
		return false
	}
	return true
}

// deleteByID removes one row and redirects back to the list. Named
// has-many associations are deleted along with it.
func (a *Admin) deleteByID(w http.ResponseWriter, r *http.Request, model any, list string, assoc ...string) {
	if _, ok := idParam(r); !ok {
		http.NotFound(w, r)
		return
	}
	if !a.loadByID(w, r, model) {
		return
	}
	q := a.db.WithContext(r.Context())
	if len(assoc) > 0 {
		q = q.Select(assoc)
	}
	if err := q.Delete(model).Error; err != nil {
		a.log.Warn("delete refused", zap.String("list", list), zap.Error(err))
		http.Redirect(w, r, list+"?error=in_use", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, list+"?ok=deleted", http.StatusSeeOther)
}

func idParam(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func actionURL(list string, id uint) string {
	if id == 0 {
		return list
	}
	return list + "/" + strconv.FormatUint(uint64(id), 10)
}

func optionalUint(s string) *uint {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return nil
	}
	v := uint(n)
	return &v
}

func requiredUint(s string) (uint, bool) {
	p := optionalUint(s)
	if p == nil {
		return 0, false
	}
	return *p, true
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func at(ss []string, i int) string {
	if i < len(ss) {
		return ss[i]
	}
	return ""
}

func uintString(p *uint) string {
	if p == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*p), 10)
}
