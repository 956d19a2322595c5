package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"windspire/internal/auth"
	"windspire/internal/content"
	"windspire/internal/models"
	"windspire/internal/store"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	store    *store.Store
	content  *content.Service
	sessions *auth.Manager
	log      *zap.Logger
}

func New(st *store.Store, svc *content.Service, sessions *auth.Manager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, content: svc, sessions: sessions, log: logger}
}

// Routes returns the full API wrapped in request logging and panic
// recovery.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	user := func(f http.HandlerFunc) http.Handler { return h.Protect(f) }
	staff := func(f http.HandlerFunc) http.Handler {
		return h.Protect(RestrictTo(models.StaffRoles...)(f))
	}
	admin := func(f http.HandlerFunc) http.Handler {
		return h.Protect(RestrictTo(models.RoleAdmin)(f))
	}

	mux.HandleFunc("GET /healthz", h.Health)

	// auth
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/refresh", h.Refresh)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)

	// users
	mux.Handle("GET /api/users/profile", user(h.Profile))
	mux.Handle("PATCH /api/users/profile", user(h.UpdateProfile))
	mux.Handle("PATCH /api/users/preferences", user(h.UpdatePreferences))
	mux.Handle("GET /api/users/progress", user(h.Progress))
	mux.Handle("POST /api/users/devices", user(h.RegisterDevice))
	mux.Handle("DELETE /api/users/devices", user(h.UnregisterDevice))
	mux.Handle("DELETE /api/users/me", user(h.Deactivate))

	// content
	mux.Handle("GET /api/content", user(h.ListContent))
	mux.Handle("POST /api/content", staff(h.CreateContent))
	mux.Handle("GET /api/content/daily", user(h.DailyContent))
	mux.Handle("GET /api/content/pool", user(h.ContentByPool))
	mux.Handle("GET /api/content/user/saved", user(h.SavedContent))
	mux.Handle("POST /api/content/generate", staff(h.GenerateForCategories))
	mux.Handle("POST /api/content/generate-multiple", staff(h.GenerateMultiple))
	mux.Handle("GET /api/content/{id}", user(h.GetContent))
	mux.Handle("PATCH /api/content/{id}", staff(h.UpdateContent))
	mux.Handle("DELETE /api/content/{id}", staff(h.DeleteContent))
	mux.Handle("POST /api/content/{id}/rate", user(h.RateContent))
	mux.Handle("POST /api/content/{id}/save", user(h.SaveContent))
	mux.Handle("DELETE /api/content/{id}/save", user(h.UnsaveContent))
	mux.Handle("POST /api/content/{id}/share", user(h.ShareContent))
	mux.Handle("POST /api/content/{id}/rewrite", staff(h.RewriteContent))
	mux.Handle("POST /api/content/{id}/recycle", staff(h.RecycleContent))

	// categories
	mux.Handle("GET /api/categories", user(h.ListCategories))
	mux.Handle("POST /api/categories", staff(h.CreateCategory))
	mux.Handle("GET /api/categories/stats/pools", staff(h.CategoryPoolStats))
	mux.Handle("POST /api/categories/activate-all", staff(h.ActivateAllCategories))
	mux.Handle("GET /api/categories/{id}", user(h.GetCategory))
	mux.Handle("PATCH /api/categories/{id}", staff(h.UpdateCategory))
	mux.Handle("DELETE /api/categories/{id}", staff(h.DeleteCategory))

	// subscription plans
	mux.Handle("GET /api/subscription/plans", user(h.ListPlans))
	mux.Handle("POST /api/subscription/plans", staff(h.CreatePlan))
	mux.Handle("GET /api/subscription/plans/{id}", user(h.GetPlan))
	mux.Handle("PATCH /api/subscription/plans/{id}", staff(h.UpdatePlan))
	mux.Handle("DELETE /api/subscription/plans/{id}", staff(h.DeletePlan))

	// prompt templates
	mux.Handle("GET /api/prompts", staff(h.ListPrompts))
	mux.Handle("POST /api/prompts", staff(h.CreatePrompt))
	mux.Handle("POST /api/prompts/import-defaults", staff(h.ImportDefaultPrompts))
	mux.Handle("GET /api/prompts/{id}", staff(h.GetPrompt))
	mux.Handle("PATCH /api/prompts/{id}", staff(h.UpdatePrompt))
	mux.Handle("DELETE /api/prompts/{id}", staff(h.DeletePrompt))

	// admin
	mux.Handle("GET /api/admin/users", admin(h.AdminListUsers))
	mux.Handle("GET /api/admin/users/{id}", admin(h.AdminGetUser))
	mux.Handle("PATCH /api/admin/users/{id}", admin(h.AdminUpdateUser))
	mux.Handle("DELETE /api/admin/users/{id}", admin(h.AdminDeleteUser))
	mux.Handle("GET /api/admin/content/pending", staff(h.PendingContent))
	mux.Handle("PATCH /api/admin/content/{id}/moderate", staff(h.ModerateContent))
	mux.Handle("POST /api/admin/content/generate", staff(h.GenerateForCategories))
	mux.Handle("GET /api/admin/content/duplicates", staff(h.Duplicates))
	mux.Handle("POST /api/admin/content/duplicates/rewrite", staff(h.RewriteDuplicates))
	mux.Handle("POST /api/admin/content/delete", staff(h.DeleteManyContent))
	mux.Handle("GET /api/admin/analytics/content", admin(h.ContentAnalytics))
	mux.Handle("GET /api/admin/analytics/users", admin(h.UserAnalytics))
	mux.Handle("POST /api/admin/prompts/seed-from-file", staff(h.SeedPromptsFromFile))

	mux.HandleFunc("/", h.NotFound)

	return h.wrap(mux)
}

// wrap recovers inside the request logger so a panicking request still
// gets its log line.
func (h *Handler) wrap(next http.Handler) http.Handler {
	return h.LogRequests(WithRecover(next, h.log))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DB().PingContext(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "success", Message: "ok"})
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	fail(w, http.StatusNotFound, "Can't find "+r.URL.Path+" on this server")
}

// M is shorthand for the "data" object of a response.
type M map[string]any

type response struct {
	Status           string                    `json:"status"`
	Results          *int                      `json:"results,omitempty"`
	Pagination       *content.Pagination       `json:"pagination,omitempty"`
	FailedCategories []content.CategoryFailure `json:"failedCategories,omitempty"`
	Message          string                    `json:"message,omitempty"`
	Data             any                       `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func success(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, response{Status: "success", Data: data})
}

func list(w http.ResponseWriter, n int, data any) {
	writeJSON(w, http.StatusOK, response{Status: "success", Results: &n, Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	kind := "fail"
	if status >= http.StatusInternalServerError {
		kind = "error"
	}
	writeJSON(w, status, response{Status: kind, Message: message})
}

// writeError maps service and store errors onto HTTP answers. Unknown
// errors are logged and hidden from the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *content.Error
	switch {
	case errors.As(err, &ce):
		if ce.Status >= http.StatusInternalServerError {
			h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		}
		fail(w, ce.Status, ce.Message)
	case errors.Is(err, store.ErrNotFound):
		fail(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrConflict):
		fail(w, http.StatusConflict, "Already exists")
	case errors.Is(err, store.ErrInUse):
		fail(w, http.StatusConflict, "Still in use by content")
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		fail(w, http.StatusInternalServerError, "Something went wrong")
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// pageParams reads page and limit, falling back to 1 and def.
func pageParams(r *http.Request, def int) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	return page, min(limit, 100)
}
