package content

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"windspire/internal/db"
	"windspire/internal/generator"
	"windspire/internal/models"
	"windspire/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeGen answers every request by calling respond.
type fakeGen struct {
	mu       sync.Mutex
	requests []generator.Request
	respond  func(generator.Request) (string, error)
}

func (f *fakeGen) Generate(_ context.Context, req generator.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeGen) ResolveModel(model string) string {
	if strings.HasPrefix(model, "gemini") {
		return model
	}
	return "gemini-test"
}

func newTestService(t *testing.T, gen *fakeGen) (*Service, *store.Store) {
	t.Helper()
	dbc, err := db.Open(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbc.Close() })
	require.NoError(t, db.Migrate(context.Background(), dbc))

	clock := testNow.Add(-time.Hour)
	st := store.New(dbc).WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	if gen == nil {
		gen = &fakeGen{respond: func(generator.Request) (string, error) { return "", generator.ErrEmpty }}
	}
	svc := NewService(st, gen, Config{Model: "gemini-test", MaxCount: 10, Concurrency: 2}, zap.NewNop()).
		WithClock(func() time.Time { return testNow })
	return svc, st
}

func newUser(t *testing.T, st *store.Store, email string, role models.Role, tier models.Tier) models.User {
	t.Helper()
	u := models.User{Name: email, Email: email, PasswordHash: "x", Role: role, Active: true,
		Subscription: models.Subscription{Tier: tier}}
	require.NoError(t, st.CreateUser(context.Background(), &u))
	return u
}

func newItem(t *testing.T, st *store.Store, title string, mod func(*models.Content)) models.Content {
	t.Helper()
	c := models.Content{
		Title:       title,
		Body:        "body of " + title,
		Category:    models.CategoryRef{ID: "cat-productivity"},
		Status:      models.StatusPublished,
		ContentType: models.TypeHack,
		Difficulty:  models.Beginner,
		Pool:        models.PoolRegular,
	}
	if mod != nil {
		mod(&c)
	}
	require.NoError(t, st.CreateContent(context.Background(), &c))
	return c
}

func at(t time.Time) func(*models.Content) {
	return func(c *models.Content) { c.PublishDate = &t }
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var e *Error
	require.True(t, errors.As(err, &e), "expected *content.Error, got %v", err)
	return e.Status
}

func ids(items []models.Content) []string {
	out := make([]string, len(items))
	for i, c := range items {
		out[i] = c.ID
	}
	return out
}

func TestListContentVisibility(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	reader := newUser(t, st, "reader@example.com", models.RoleUser, models.TierFree)
	admin := newUser(t, st, "admin@example.com", models.RoleAdmin, models.TierFree)

	for i := 0; i < 3; i++ {
		newItem(t, st, "Published", nil)
	}
	newItem(t, st, "Draft", func(c *models.Content) { c.Status = models.StatusDraft })

	page, err := svc.ListContent(ctx, reader, ListQuery{Status: models.StatusDraft, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, Pagination{Total: 3, Page: 1, Pages: 2, Limit: 2}, page.Pagination)

	page, err = svc.ListContent(ctx, admin, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Pagination.Total)

	page, err = svc.ListContent(ctx, admin, ListQuery{Status: models.StatusDraft})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Draft", page.Items[0].Title)

	_, err = svc.ListContent(ctx, admin, ListQuery{Pool: "gold"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestDailyContentRotation(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	user := newUser(t, st, "reader@example.com", models.RoleUser, models.TierFree)
	old := testNow.AddDate(0, 0, -10)

	today1 := newItem(t, st, "Today one", at(testNow.Add(-2*time.Hour)))
	today2 := newItem(t, st, "Today two", at(testNow.Add(-time.Hour)))
	newItem(t, st, "Premium today", func(c *models.Content) {
		at(testNow.Add(-time.Hour))(c)
		c.Premium = true
	})
	newItem(t, st, "Yesterday", at(testNow.AddDate(0, 0, -1)))
	hl1 := newItem(t, st, "Loved one", func(c *models.Content) { at(old)(c); c.Pool = models.PoolHighlyLiked })
	hl2 := newItem(t, st, "Loved two", func(c *models.Content) { at(old)(c); c.Pool = models.PoolHighlyLiked })
	acc1 := newItem(t, st, "Fine one", func(c *models.Content) { at(old)(c); c.Pool = models.PoolAccepted })
	acc2 := newItem(t, st, "Fine two", func(c *models.Content) { at(old)(c); c.Pool = models.PoolAccepted })
	newItem(t, st, "Other type", func(c *models.Content) { at(testNow)(c); c.ContentType = models.TypeTip })

	require.NoError(t, st.RecordView(ctx, user.ID, hl1))
	require.NoError(t, st.MarkUsed(ctx, []string{acc1.ID}, old))

	items, err := svc.DailyContent(ctx, user, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{today2.ID, today1.ID, hl2.ID, acc2.ID, acc1.ID}, ids(items))

	got, err := st.GetContent(ctx, acc2.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)
	require.NotNil(t, got.LastUsedDate)
	assert.True(t, got.LastUsedDate.Equal(testNow))

	got, err = st.GetContent(ctx, today1.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UsageCount, "items published today are not rotation fill")
}

func TestDailyContentPremiumTier(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	user := newUser(t, st, "vip@example.com", models.RoleUser, models.TierPremium)
	newItem(t, st, "Premium today", func(c *models.Content) {
		at(testNow.Add(-time.Hour))(c)
		c.Premium = true
	})

	items, err := svc.DailyContent(ctx, user, "productivity", models.TypeHack)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Premium)
}

func TestDailyContentUnknownCategory(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	user := newUser(t, st, "reader@example.com", models.RoleUser, models.TierFree)

	_, err := svc.DailyContent(ctx, user, "astrology", "")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = st.DB().ExecContext(ctx, `UPDATE categories SET active = 0 WHERE slug = 'money'`)
	require.NoError(t, err)
	_, err = svc.DailyContent(ctx, user, "money", "")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestDailyWindowUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	svc := NewService(nil, nil, Config{Location: loc}, nil)
	start, end := svc.DailyWindow(time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, loc), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestGetContent(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	free := newUser(t, st, "free@example.com", models.RoleUser, models.TierFree)
	paid := newUser(t, st, "paid@example.com", models.RoleUser, models.TierBasic)
	premium := newItem(t, st, "Premium", func(c *models.Content) { c.Premium = true })

	_, err := svc.GetContent(ctx, free, premium.ID)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	c, err := svc.GetContent(ctx, paid, premium.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Stats.Views)

	_, err = svc.GetContent(ctx, paid, "missing")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	completed, err := st.CompletedIDs(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{premium.ID}, completed)
}

func TestRate(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	user := newUser(t, st, "reader@example.com", models.RoleUser, models.TierFree)
	c := newItem(t, st, "Rated", nil)

	_, err := svc.Rate(ctx, user, c.ID, "love")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	_, err = svc.Rate(ctx, user, "missing", "like")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	var r Rating
	for i := 0; i < 5; i++ {
		r, err = svc.Rate(ctx, user, c.ID, "like")
		require.NoError(t, err)
	}
	assert.Equal(t, Rating{Rating: "like", Likes: 5, Dislikes: 0, Pool: models.PoolAccepted}, r)
}

func TestSaveTwice(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	user := newUser(t, st, "reader@example.com", models.RoleUser, models.TierFree)
	c := newItem(t, st, "Keep", nil)

	require.NoError(t, svc.Save(ctx, user, c.ID))
	err := svc.Save(ctx, user, c.ID)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Equal(t, "Content already saved", err.Error())

	saved, err := svc.Saved(ctx, user)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, 1, saved[0].Stats.Saves)

	require.NoError(t, svc.Unsave(ctx, user, c.ID))
	saved, err = svc.Saved(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, saved)

	n, err := svc.Share(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreateUpdateRecycle(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	editor := newUser(t, st, "editor@example.com", models.RoleContentCreator, models.TierFree)

	title, body, cat := "Batch errands", "Group errands by location to save trips.", "cat-money"
	c, err := svc.Create(ctx, editor, Changes{Title: &title, Body: &body, CategoryID: &cat})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, c.Status)
	assert.Equal(t, models.TypeHack, c.ContentType)
	assert.Equal(t, "Money", c.Category.Name)
	assert.Equal(t, body, c.Summary)
	require.NotNil(t, c.Author)
	assert.Equal(t, editor.ID, c.Author.ID)

	_, err = svc.Recycle(ctx, c.ID)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	published := models.StatusPublished
	c, err = svc.Update(ctx, c.ID, Changes{Status: &published})
	require.NoError(t, err)
	require.NotNil(t, c.PublishDate)
	assert.True(t, c.PublishDate.Equal(testNow))

	c, err = svc.Recycle(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, c.PublishDate.Equal(testNow))

	missing := "cat-nope"
	_, err = svc.Update(ctx, c.ID, Changes{CategoryID: &missing})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = svc.Create(ctx, editor, Changes{Title: &title})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestModerate(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	mod := newUser(t, st, "mod@example.com", models.RoleModerator, models.TierFree)
	a := newItem(t, st, "Queued A", func(c *models.Content) { c.Status = models.StatusPending })
	b := newItem(t, st, "Queued B", func(c *models.Content) { c.Status = models.StatusPending })

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ids(pending))

	_, err = svc.Moderate(ctx, mod, a.ID, "maybe", "")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	got, err := svc.Moderate(ctx, mod, a.ID, "approve", "looks good")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, got.Status)
	assert.NotNil(t, got.PublishDate)
	assert.Equal(t, "looks good", got.Moderation.Notes)
	assert.Equal(t, mod.ID, got.Moderation.ModeratedBy)

	got, err = svc.Moderate(ctx, mod, b.ID, "reject", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Nil(t, got.PublishDate)

	pending, err = svc.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDeleteMany(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)
	c := newItem(t, st, "Gone", nil)

	res, err := svc.DeleteMany(ctx, []string{c.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, []ItemResult{
		{ID: c.ID, Success: true},
		{ID: "missing", Success: false, Error: "Content not found"},
	}, res)

	_, err = svc.DeleteMany(ctx, nil)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}
