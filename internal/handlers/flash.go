// internal/handlers/flash.go
package handlers

import (
	"net/http"
	"strings"
)

type Flash struct {
	Kind string // "ok" or "error"
	Text string
}

var okText = map[string]string{
	"saved":   "Saved.",
	"created": "Created.",
	"deleted": "Deleted.",
}

var errText = map[string]string{
	"in_use":    "Cannot delete: other records still refer to this one.",
	"not_found": "Record not found.",
}

// MakeFlash reads ?ok= / ?error= and falls back to the explicit strings.
func MakeFlash(r *http.Request, errStr, msgStr string) *Flash {
	q := r.URL.Query()
	errRaw := strings.TrimSpace(q.Get("error"))
	okRaw := strings.TrimSpace(q.Get("ok"))

	if errRaw != "" {
		if t, ok := errText[strings.ToLower(errRaw)]; ok {
			return &Flash{Kind: "error", Text: t}
		}
		return &Flash{Kind: "error", Text: errRaw}
	}
	if okRaw != "" {
		if t, ok := okText[strings.ToLower(okRaw)]; ok {
			return &Flash{Kind: "ok", Text: t}
		}
		return &Flash{Kind: "ok", Text: okRaw}
	}

	if errStr != "" {
		return &Flash{Kind: "error", Text: errStr}
	}
	if msgStr != "" {
		return &Flash{Kind: "ok", Text: msgStr}
	}
	return nil
}
