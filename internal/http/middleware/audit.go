package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/storedir/store-directory/internal/auth"
	"go.uber.org/zap"
)

// Audit logs every successful write with the principal that made it.
// Successful HTML form posts answer with a redirect, so 3xx counts as success.
// Reads are not audited.
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if methodToAction(r.Method) == "" {
				next.ServeHTTP(w, r)
				return
			}

			rw := wrapResponseWriter(w)
			next.ServeHTTP(rw, r)

			if rw.statusCode < 200 || rw.statusCode >= 400 {
				return
			}

			// route params are only known once the router has matched
			action := auditAction(r)
			fields := []zap.Field{
				zap.String("action", action),
				zap.String("path", r.URL.Path),
				zap.Int("status_code", rw.statusCode),
				zap.String("request_id", r.Header.Get(RequestIDHeader)),
			}
			if id := chi.URLParam(r, "id"); id != "" {
				fields = append(fields, zap.String("store_id", id))
			} else if location := rw.Header().Get("Location"); location != "" {
				fields = append(fields, zap.String("location", location))
			}
			if principal, ok := auth.FromContext(r.Context()); ok {
				fields = append(fields,
					zap.String("subject", principal.Subject),
					zap.String("auth_type", string(principal.Method)),
				)
			}

			logger.Info("audit", fields...)
		})
	}
}

// auditAction maps a write request to an audit action. HTML forms only use
// POST: "/stores/{id}/delete" deletes and "/stores/{id}" updates.
func auditAction(r *http.Request) string {
	if r.Method == http.MethodPost {
		switch {
		case strings.HasSuffix(r.URL.Path, "/delete"):
			return "delete"
		case chi.URLParam(r, "id") != "":
			return "update"
		}
	}
	return methodToAction(r.Method)
}

// methodToAction converts an HTTP method to an audit action
func methodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return ""
	}
}
