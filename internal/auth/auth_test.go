package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windspire/internal/db"
	"windspire/internal/models"
	"windspire/internal/store"
)

func setup(t *testing.T) (*Manager, string) {
	t.Helper()
	dbc, err := db.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbc.Close() })
	require.NoError(t, db.Migrate(context.Background(), dbc))

	u := models.User{Name: "A", Email: "a@example.com", PasswordHash: "x", Active: true}
	require.NoError(t, store.New(dbc).CreateUser(context.Background(), &u))
	return NewManager(dbc, time.Hour, 24*time.Hour), u.ID
}

func TestSessionBearerAndCookie(t *testing.T) {
	m, uid := setup(t)
	rec := httptest.NewRecorder()
	s, err := m.Create(context.Background(), rec, uid)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+s.Token)
	got, ok := m.CurrentUserID(r)
	require.True(t, ok)
	assert.Equal(t, uid, got)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	got, ok = m.CurrentUserID(r)
	require.True(t, ok)
	assert.Equal(t, uid, got)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer nope")
	_, ok = m.CurrentUserID(r)
	assert.False(t, ok)
}

func TestSessionExpiry(t *testing.T) {
	m, uid := setup(t)
	s, err := m.Create(context.Background(), httptest.NewRecorder(), uid)
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+s.Token)
	_, ok := m.CurrentUserID(r)
	assert.False(t, ok)
}

func TestRefreshRotatesTokens(t *testing.T) {
	m, uid := setup(t)
	ctx := context.Background()
	s, err := m.Create(ctx, httptest.NewRecorder(), uid)
	require.NoError(t, err)

	next, err := m.Refresh(ctx, httptest.NewRecorder(), s.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, s.Token, next.Token)

	_, err = m.Refresh(ctx, httptest.NewRecorder(), s.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+s.Token)
	_, ok := m.CurrentUserID(r)
	assert.False(t, ok, "old token revoked")
}

func TestPasswordHelpers(t *testing.T) {
	h, err := HashPassword("password123")
	require.NoError(t, err)
	assert.True(t, CheckPassword("password123", h))
	assert.False(t, CheckPassword("password124", h))
}
