package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"go.uber.org/zap"

	"windspire/internal/models"
	"windspire/internal/store"
)

// WithRecover wraps an http.Handler and recovers from panics,
// returning a JSON 500 instead of crashing the server.
func WithRecover(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"))
				fail(w, http.StatusInternalServerError, "Something went wrong")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LogRequests writes one line per request.
func (h *Handler) LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type ctxKey struct{}

func withUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// currentUser returns the user loaded by Protect.
func currentUser(r *http.Request) models.User {
	u, _ := r.Context().Value(ctxKey{}).(models.User)
	return u
}

// Protect rejects requests without a valid session and puts the active
// user in the request context.
func (h *Handler) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := h.sessions.CurrentUserID(r)
		if !ok {
			fail(w, http.StatusUnauthorized, "You are not logged in. Please log in to get access.")
			return
		}
		u, err := h.store.GetUser(r.Context(), uid)
		if errors.Is(err, store.ErrNotFound) {
			fail(w, http.StatusUnauthorized, "The user belonging to this token no longer exists.")
			return
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if !u.Active {
			fail(w, http.StatusUnauthorized, "Your account has been deactivated.")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
	})
}

// RestrictTo answers 403 unless the current user has one of roles. It
// must run behind Protect.
func RestrictTo(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, currentUser(r).Role) {
				fail(w, http.StatusForbidden, "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
