package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request in place of middleware.Logger.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)),
					zap.String("remote", r.RemoteAddr),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				}
				if ww.Status() >= http.StatusInternalServerError {
					log.Warn("request", fields...)
					return
				}
				log.Info("request", fields...)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
