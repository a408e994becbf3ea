package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"lookupdesk/core"
	"lookupdesk/logger"
	"lookupdesk/models"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const claimsKey ctxKey = iota

// ClaimsFrom returns the verified token claims stored by RequireAdmin.
func ClaimsFrom(ctx context.Context) (*core.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*core.Claims)
	return c, ok
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAdmin verifies the bearer token and the ADMIN role on every request.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims, err := h.Auth.Authorize(token)
		if err != nil && !errors.Is(err, core.ErrInvalidToken) {
			logger.Error("RequireAdmin: looking up token subject: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to verify credentials")
			return
		}
		if err != nil {
			logger.Debug("RequireAdmin: rejecting token for %s %s: %v", r.Method, r.URL.Path, err)
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		if claims.Role != models.RoleAdmin {
			logger.Info("RequireAdmin: user '%s' with role %s denied %s %s", claims.Subject, claims.Role, r.Method, r.URL.Path)
			writeError(w, http.StatusForbidden, "Access denied. ADMIN role required.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// RequestLogger writes one line per request with its chi request id.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.WithFields(map[string]interface{}{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"client":     clientIP(r),
		}).Info("request")
	})
}
