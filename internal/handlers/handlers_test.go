package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"windspire/internal/auth"
	"windspire/internal/content"
	"windspire/internal/db"
	"windspire/internal/generator"
	"windspire/internal/models"
	"windspire/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type stubGen struct{ answer string }

func (s stubGen) Generate(context.Context, generator.Request) (string, error) {
	return s.answer, nil
}

type testAPI struct {
	t     *testing.T
	h     http.Handler
	store *store.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dbc, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbc.Close() })
	require.NoError(t, db.Migrate(context.Background(), dbc))

	st := store.New(dbc)
	gen := stubGen{answer: `[{"title": "Two minute rule", "body": "If it takes less than two minutes, do it now."}]`}
	svc := content.NewService(st, gen, content.Config{Model: "gemini-test"}, zap.NewNop())
	sessions := auth.NewManager(dbc, time.Hour, 24*time.Hour)
	return &testAPI{t: t, h: New(st, svc, sessions, zap.NewNop()).Routes(), store: st}
}

type apiResponse struct {
	Status           string                    `json:"status"`
	Results          *int                      `json:"results"`
	Message          string                    `json:"message"`
	Pagination       *content.Pagination       `json:"pagination"`
	FailedCategories []content.CategoryFailure `json:"failedCategories"`
	Data             map[string]json.RawMessage
}

func (a *testAPI) do(method, path, token string, body any) (int, apiResponse) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)

	var out apiResponse
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (a *testAPI) field(res apiResponse, key string, v any) {
	a.t.Helper()
	raw, ok := res.Data[key]
	require.True(a.t, ok, "missing data.%s", key)
	require.NoError(a.t, json.Unmarshal(raw, v))
}

// register creates a user through the API, optionally promotes it and
// returns its bearer token.
func (a *testAPI) register(email string, role models.Role) (string, models.User) {
	a.t.Helper()
	code, res := a.do("POST", "/api/auth/register", "", M{"name": "Test", "email": email, "password": "password123"})
	require.Equal(a.t, http.StatusCreated, code, res.Message)
	var token string
	var u models.User
	a.field(res, "token", &token)
	a.field(res, "user", &u)
	if role != models.RoleUser {
		u.Role = role
		require.NoError(a.t, a.store.UpdateUser(context.Background(), u))
	}
	return token, u
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	token, u := api.register("Ada@Example.com", models.RoleUser)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, models.TierFree, u.Subscription.Tier)

	code, res := api.do("POST", "/api/auth/register", "", M{"name": "Ada", "email": "ada@example.com", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "fail", res.Status)

	code, _ = api.do("POST", "/api/auth/register", "", M{"name": "Bob", "email": "bob@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do("POST", "/api/auth/login", "", M{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, res = api.do("POST", "/api/auth/login", "", M{"email": "ada@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, code)
	var fresh, refresh string
	api.field(res, "token", &fresh)
	api.field(res, "refreshToken", &refresh)

	code, _ = api.do("GET", "/api/users/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code, "login replaces older sessions")

	code, res = api.do("GET", "/api/users/profile", fresh, nil)
	require.Equal(t, http.StatusOK, code)
	var me models.User
	api.field(res, "user", &me)
	assert.NotNil(t, me.LastLogin)

	code, res = api.do("POST", "/api/auth/refresh", "", M{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, code)
	var rotated string
	api.field(res, "token", &rotated)
	code, _ = api.do("GET", "/api/users/profile", rotated, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = api.do("POST", "/api/auth/refresh", "", M{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, code, "refresh tokens are single use")

	code, _ = api.do("DELETE", "/api/users/me", rotated, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, res = api.do("POST", "/api/auth/login", "", M{"email": "ada@example.com", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Your account has been deactivated.", res.Message)
}

func TestProtectAndRestrict(t *testing.T) {
	api := newTestAPI(t)
	userToken, _ := api.register("user@example.com", models.RoleUser)
	staffToken, _ := api.register("editor@example.com", models.RoleContentCreator)

	code, res := api.do("GET", "/api/content", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "fail", res.Status)

	code, _ = api.do("POST", "/api/content/generate", userToken, M{"categoryIds": []string{"cat-tech"}})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do("GET", "/api/admin/analytics/users", staffToken, nil)
	assert.Equal(t, http.StatusForbidden, code, "analytics is admin only")

	code, res = api.do("GET", "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "fail", res.Status)

	code, _ = api.do("GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestContentLifecycle(t *testing.T) {
	api := newTestAPI(t)
	staff, _ := api.register("editor@example.com", models.RoleAdmin)
	reader, _ := api.register("reader@example.com", models.RoleUser)

	code, res := api.do("POST", "/api/content", staff, M{
		"title":    "Inbox triage",
		"body":     "Sort email into do, delegate, defer.",
		"category": "cat-productivity",
		"status":   "published",
	})
	require.Equal(t, http.StatusCreated, code, res.Message)
	var c models.Content
	api.field(res, "content", &c)
	require.NotNil(t, c.PublishDate)

	code, res = api.do("GET", "/api/content/daily?category=productivity", reader, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, res.Results)
	assert.Equal(t, 1, *res.Results)

	code, res = api.do("GET", "/api/content/daily?category=astrology", reader, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Category not found", res.Message)

	code, res = api.do("GET", "/api/content/"+c.ID, reader, nil)
	require.Equal(t, http.StatusOK, code)

	code, res = api.do("POST", "/api/content/"+c.ID+"/rate", reader, M{"rating": "meh"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = api.do("POST", "/api/content/"+c.ID+"/rate", reader, M{"rating": "like"})
	require.Equal(t, http.StatusOK, code)
	var likes int
	api.field(res, "likes", &likes)
	assert.Equal(t, 1, likes)

	code, _ = api.do("POST", "/api/content/"+c.ID+"/save", reader, nil)
	assert.Equal(t, http.StatusOK, code)
	code, res = api.do("POST", "/api/content/"+c.ID+"/save", reader, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Content already saved", res.Message)

	code, res = api.do("GET", "/api/content/user/saved", reader, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, *res.Results)

	code, res = api.do("GET", "/api/users/progress", reader, nil)
	require.Equal(t, http.StatusOK, code)
	var progress models.Progress
	api.field(res, "progress", &progress)
	assert.Equal(t, []string{c.ID}, progress.CompletedContent)
	assert.Equal(t, []string{c.ID}, progress.SavedContent)

	code, res = api.do("GET", "/api/content?limit=10", reader, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, res.Pagination)
	assert.Equal(t, 1, res.Pagination.Total)

	code, res = api.do("DELETE", "/api/content/"+c.ID, staff, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", res.Status)
	code, _ = api.do("GET", "/api/content/"+c.ID, reader, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGenerateAndModerate(t *testing.T) {
	api := newTestAPI(t)
	staff, _ := api.register("editor@example.com", models.RoleModerator)

	code, res := api.do("POST", "/api/admin/content/generate", staff, M{"categoryIds": []string{"cat-tech", "cat-missing"}})
	require.Equal(t, http.StatusCreated, code, res.Message)
	assert.Equal(t, 1, *res.Results)
	assert.Equal(t, []content.CategoryFailure{{ID: "cat-missing", Error: "Category not found"}}, res.FailedCategories)

	code, res = api.do("POST", "/api/content/generate", staff, M{"categoryIds": []string{}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = api.do("GET", "/api/admin/content/pending", staff, nil)
	require.Equal(t, http.StatusOK, code)
	var pending []models.Content
	api.field(res, "content", &pending)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].AIGenerated)

	code, res = api.do("PATCH", "/api/admin/content/"+pending[0].ID+"/moderate", staff, M{"action": "approve", "moderationNotes": "looks good"})
	require.Equal(t, http.StatusOK, code)
	var approved models.Content
	api.field(res, "content", &approved)
	assert.Equal(t, models.StatusPublished, approved.Status)
	assert.Equal(t, "looks good", approved.Moderation.Notes)

	code, res = api.do("PATCH", "/api/admin/content/"+pending[0].ID+"/moderate", staff, M{"action": "reject", "notes": "off-topic"})
	require.Equal(t, http.StatusOK, code)
	var rejected models.Content
	api.field(res, "content", &rejected)
	assert.Equal(t, "off-topic", rejected.Moderation.Notes)

	code, res = api.do("GET", "/api/admin/content/duplicates", staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, *res.Results)
}

func TestCategoriesAndPrompts(t *testing.T) {
	api := newTestAPI(t)
	staff, _ := api.register("admin@example.com", models.RoleAdmin)
	reader, _ := api.register("reader@example.com", models.RoleUser)

	code, res := api.do("POST", "/api/categories", staff, M{"name": "Home & Garden", "contentType": "tip"})
	require.Equal(t, http.StatusCreated, code, res.Message)
	var cat models.Category
	api.field(res, "category", &cat)
	assert.Equal(t, "home-garden", cat.Slug)
	assert.True(t, cat.Active)

	code, _ = api.do("POST", "/api/categories", reader, M{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do("PATCH", "/api/categories/"+cat.ID, staff, M{"active": false})
	require.Equal(t, http.StatusOK, code)
	code, _ = api.do("GET", "/api/categories/"+cat.ID, reader, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, res = api.do("POST", "/api/categories/activate-all", staff, nil)
	require.Equal(t, http.StatusOK, code)
	var n int
	api.field(res, "activatedCount", &n)
	assert.Equal(t, 1, n)

	code, res = api.do("POST", "/api/content", staff, M{"title": "Mulch", "body": "Mulch keeps soil moist.", "category": cat.ID})
	require.Equal(t, http.StatusCreated, code, res.Message)
	code, _ = api.do("DELETE", "/api/categories/"+cat.ID, staff, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, res = api.do("POST", "/api/prompts", staff, M{"name": "Broken", "template": "{{.Category"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, res = api.do("POST", "/api/prompts", staff, M{"name": "Typo", "template": "Tips about {{.Categroy}}"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, res.Message, "Categroy")

	code, res = api.do("POST", "/api/prompts/import-defaults", staff, nil)
	require.Equal(t, http.StatusCreated, code)
	api.field(res, "count", &n)
	assert.Equal(t, 4, n)

	code, res = api.do("GET", "/api/prompts?contentType=hack", staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, *res.Results)
	var templates []models.PromptTemplate
	api.field(res, "templates", &templates)
	require.Len(t, templates, 1)

	code, res = api.do("GET", "/api/prompts/"+templates[0].ID, staff, nil)
	require.Equal(t, http.StatusOK, code)
	var tmpl models.PromptTemplate
	api.field(res, "template", &tmpl)
	assert.Equal(t, templates[0].Name, tmpl.Name)
}

func TestSeedPromptsFromFile(t *testing.T) {
	api := newTestAPI(t)
	staff, _ := api.register("admin@example.com", models.RoleAdmin)
	reader, _ := api.register("reader@example.com", models.RoleUser)

	code, _ := api.do("POST", "/api/admin/prompts/seed-from-file", reader, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, res := api.do("POST", "/api/admin/prompts/seed-from-file", staff, nil)
	require.Equal(t, http.StatusOK, code, res.Message)
	var updated, added int
	var errs []string
	api.field(res, "updatedCategories", &updated)
	api.field(res, "newPrompts", &added)
	api.field(res, "errors", &errs)
	assert.Equal(t, 4, updated)
	assert.Equal(t, 4, added)
	assert.Empty(t, errs)

	cat, err := api.store.GetCategory(context.Background(), "cat-money")
	require.NoError(t, err)
	assert.Contains(t, cat.Prompt, "personal finance")

	code, res = api.do("POST", "/api/admin/prompts/seed-from-file", staff, nil)
	require.Equal(t, http.StatusOK, code)
	api.field(res, "updatedCategories", &updated)
	api.field(res, "newPrompts", &added)
	assert.Zero(t, updated)
	assert.Zero(t, added)
}

func TestPlans(t *testing.T) {
	api := newTestAPI(t)
	staff, _ := api.register("admin@example.com", models.RoleAdmin)
	reader, _ := api.register("reader@example.com", models.RoleUser)

	code, res := api.do("GET", "/api/subscription/plans", reader, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4, *res.Results)

	code, res = api.do("POST", "/api/subscription/plans", staff, M{"name": "Team", "tier": "enterprise", "priceCents": 4900})
	require.Equal(t, http.StatusCreated, code, res.Message)
	var p models.SubscriptionPlan
	api.field(res, "plan", &p)
	assert.Equal(t, 100, p.DailyLimit)
	assert.Equal(t, models.IntervalMonth, p.Interval)

	code, _ = api.do("POST", "/api/subscription/plans", staff, M{"name": "Bad", "tier": "gold"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do("PATCH", "/api/subscription/plans/"+p.ID, staff, M{"active": false})
	require.Equal(t, http.StatusOK, code)
	code, _ = api.do("GET", "/api/subscription/plans/"+p.ID, reader, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminUsers(t *testing.T) {
	api := newTestAPI(t)
	admin, me := api.register("admin@example.com", models.RoleAdmin)
	readerToken, reader := api.register("reader@example.com", models.RoleUser)

	code, res := api.do("GET", "/api/admin/users?limit=1", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, content.Pagination{Total: 2, Page: 1, Pages: 2, Limit: 1}, *res.Pagination)

	code, res = api.do("PATCH", "/api/admin/users/"+reader.ID, admin, M{"subscription": M{"tier": "premium"}, "role": "wizard"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = api.do("PATCH", "/api/admin/users/"+reader.ID, admin, M{"subscription": M{"tier": "premium", "status": "active"}})
	require.Equal(t, http.StatusOK, code)
	var u models.User
	api.field(res, "user", &u)
	assert.Equal(t, models.TierPremium, u.Subscription.Tier)

	code, _ = api.do("PATCH", "/api/admin/users/"+reader.ID, admin, M{"active": false})
	require.Equal(t, http.StatusOK, code)
	code, _ = api.do("GET", "/api/users/profile", readerToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do("DELETE", "/api/admin/users/"+me.ID, admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = api.do("DELETE", "/api/admin/users/"+reader.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, res = api.do("GET", "/api/admin/analytics/users", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var a store.UserAnalytics
	api.field(res, "analytics", &a)
	assert.Equal(t, 1, a.Total)
}

func TestDevicesAndPreferences(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("reader@example.com", models.RoleUser)

	code, _ := api.do("POST", "/api/users/devices", token, M{"token": "abc", "platform": "blackberry"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res := api.do("POST", "/api/users/devices", token, M{"token": "abc", "platform": "ios"})
	require.Equal(t, http.StatusOK, code)
	var devices []models.DeviceToken
	api.field(res, "deviceTokens", &devices)
	require.Len(t, devices, 1)

	code, _ = api.do("POST", "/api/users/devices", token, M{"token": "abc", "platform": "ios"})
	require.Equal(t, http.StatusOK, code)
	code, _ = api.do("DELETE", "/api/users/devices", token, M{"token": "abc"})
	require.Equal(t, http.StatusOK, code)

	code, res = api.do("PATCH", "/api/users/preferences", token, M{
		"theme":              "dark",
		"notifications":      M{"push": true},
		"contentPreferences": M{"categories": []string{"cat-tech"}, "difficulty": "advanced"},
	})
	require.Equal(t, http.StatusOK, code)
	var prefs models.Preferences
	api.field(res, "preferences", &prefs)
	assert.Equal(t, "dark", prefs.Theme)
	assert.True(t, prefs.Notifications.Push)
	assert.Equal(t, models.Advanced, prefs.ContentPreferences.Difficulty)

	code, _ = api.do("PATCH", "/api/users/preferences", token, M{"theme": "neon"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPanicIsLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := &Handler{log: zap.New(core)}
	srv := h.wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/content", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	reqs := logs.FilterMessage("request").All()
	require.Len(t, reqs, 1)
	assert.EqualValues(t, http.StatusInternalServerError, reqs[0].ContextMap()["status"])
}

func TestRecoverReturnsJSON(t *testing.T) {
	h := WithRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), zap.NewNop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Something went wrong"}`, rec.Body.String())
}
