package handlers

import (
	"crypto/subtle"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const adminCookieName = "admin_session"

// Five attempts per address, then one more per 12 seconds.
const (
	loginBurst = 5
	loginEvery = 12 * time.Second
)

type loginGuard struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newLoginGuard() *loginGuard {
	return &loginGuard{limiters: make(map[string]*rate.Limiter)}
}

func (g *loginGuard) allow(addr string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	limiter, ok := g.limiters[addr]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(loginEvery), loginBurst)
		g.limiters[addr] = limiter
	}
	return limiter.Allow()
}

// prune forgets addresses whose budget has fully refilled by now; a fresh
// limiter would behave the same.
func (g *loginGuard) prune(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for addr, limiter := range g.limiters {
		if limiter.TokensAt(now) >= loginBurst {
			delete(g.limiters, addr)
			n++
		}
	}
	return n
}

// PruneLoginLimiters drops idle per-address login limiters.
func (a *Admin) PruneLoginLimiters() int {
	return a.login.prune(time.Now())
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RequireAdmin blocks access unless the cookie names a live session.
func (a *Admin) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(adminCookieName)
		if err != nil || !a.sessions.Valid(r.Context(), c.Value) {
			http.Redirect(w, r, "/admin/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GET /admin/login
func (a *Admin) LoginForm(w http.ResponseWriter, r *http.Request) {
	a.renderLogin(w, r, http.StatusOK, "")
}

func (a *Admin) renderLogin(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	next := r.FormValue("next")
	a.views.Render(w, status, "admin/login.tmpl", map[string]any{
		"Title": "Admin • Login",
		"Next":  next,
		"Flash": MakeFlash(r, errMsg, ""),
	})
}

// POST /admin/login
func (a *Admin) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	addr := clientAddr(r)
	if !a.login.allow(addr) {
		a.log.Warn("login throttled", zap.String("addr", addr))
		a.renderLogin(w, r, http.StatusTooManyRequests, "Too many attempts, try again later.")
		return
	}
	pw := r.PostForm.Get("password")
	if a.adminPassword == "" || subtle.ConstantTimeCompare([]byte(pw), []byte(a.adminPassword)) != 1 {
		a.log.Info("login failed", zap.String("addr", addr))
		a.renderLogin(w, r, http.StatusUnauthorized, "Invalid password.")
		return
	}

	sess, err := a.sessions.Create(r.Context())
	if err != nil {
		a.dbError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		Expires:  sess.ExpiresAt,
	})

	next := r.PostForm.Get("next")
	// Only local paths; "//host" would leave the site.
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/admin"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// POST /admin/logout
func (a *Admin) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(adminCookieName); err == nil {
		if err := a.sessions.Revoke(r.Context(), c.Value); err != nil {
			a.log.Warn("session revoke failed", zap.Error(err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}
