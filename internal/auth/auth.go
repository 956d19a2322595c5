package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookie = "windspire_session"

var ErrInvalidRefresh = errors.New("invalid or expired refresh token")

type Session struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	UserID       string    `json:"-"`
}

type Manager struct {
	db         *sql.DB
	maxAge     time.Duration
	refreshAge time.Duration
	now        func() time.Time
}

func NewManager(db *sql.DB, maxAge, refreshAge time.Duration) *Manager {
	return &Manager{db: db, maxAge: maxAge, refreshAge: refreshAge, now: time.Now}
}

// Create starts a session for userID, replacing any previous ones, and
// sets the session cookie.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, userID string) (Session, error) {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return Session{}, err
	}
	return m.insert(ctx, w, userID)
}

func (m *Manager) insert(ctx context.Context, w http.ResponseWriter, userID string) (Session, error) {
	now := m.now().UTC()
	s := Session{
		Token:        uuid.New().String(),
		RefreshToken: uuid.New().String(),
		ExpiresAt:    now.Add(m.maxAge),
		UserID:       userID,
	}
	_, err := m.db.ExecContext(ctx, `INSERT INTO sessions(id,user_id,refresh_token,expires_at,refresh_expires_at)
		VALUES(?,?,?,?,?)`, s.Token, userID, s.RefreshToken, s.ExpiresAt, now.Add(m.refreshAge))
	if err != nil {
		return Session{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.ExpiresAt,
	})
	return s, nil
}

// Refresh swaps a refresh token for a fresh session.
func (m *Manager) Refresh(ctx context.Context, w http.ResponseWriter, refreshToken string) (Session, error) {
	if refreshToken == "" {
		return Session{}, ErrInvalidRefresh
	}
	var id, uid string
	var exp time.Time
	err := m.db.QueryRowContext(ctx, `SELECT id, user_id, refresh_expires_at FROM sessions WHERE refresh_token = ?`,
		refreshToken).Scan(&id, &uid, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrInvalidRefresh
	} else if err != nil {
		return Session{}, err
	}
	if _, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return Session{}, err
	}
	if m.now().After(exp) {
		return Session{}, ErrInvalidRefresh
	}
	return m.insert(ctx, w, uid)
}

func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	if tok := token(r); tok != "" {
		m.db.ExecContext(r.Context(), `DELETE FROM sessions WHERE id = ?`, tok)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
}

// DestroyAll ends every session of userID.
func (m *Manager) DestroyAll(ctx context.Context, userID string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (m *Manager) CurrentUserID(r *http.Request) (string, bool) {
	tok := token(r)
	if tok == "" {
		return "", false
	}
	var uid string
	var exp time.Time
	err := m.db.QueryRowContext(r.Context(), `SELECT user_id, expires_at FROM sessions WHERE id = ?`, tok).Scan(&uid, &exp)
	if err != nil || m.now().After(exp) {
		return "", false
	}
	return uid, true
}

// token reads the bearer token, falling back to the session cookie.
func token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// --- password helpers (bcrypt) ---
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
