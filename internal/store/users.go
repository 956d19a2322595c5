package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"windspire/internal/models"
)

const userColumns = `id, name, email, password_hash, avatar, role, active, verified, sub_tier, sub_status,
	pref_theme, pref_notify_email, pref_notify_push, pref_categories, pref_difficulty,
	total_content_viewed, total_likes, total_dislikes, categories_explored, last_login, created_at`

func scanUser(sc scanner) (models.User, error) {
	var u models.User
	var cats string
	var lastLogin sql.NullTime
	err := sc.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar, &u.Role, &u.Active, &u.Verified,
		&u.Subscription.Tier, &u.Subscription.Status,
		&u.Preferences.Theme, &u.Preferences.Notifications.Email, &u.Preferences.Notifications.Push,
		&cats, &u.Preferences.ContentPreferences.Difficulty,
		&u.Stats.TotalContentViewed, &u.Stats.TotalLikes, &u.Stats.TotalDislikes, &u.Stats.CategoriesExplored,
		&lastLogin, &u.CreatedAt)
	if err != nil {
		return u, err
	}
	u.Preferences.ContentPreferences.Categories = decodeList(cats)
	u.LastLogin = timePtr(lastLogin)
	return u, nil
}

// CreateUser inserts u. ErrConflict if the email is taken.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.ID = newID()
	u.CreatedAt = s.now().UTC()
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Subscription.Tier == "" {
		u.Subscription.Tier = models.TierFree
	}
	if u.Subscription.Status == "" {
		u.Subscription.Status = models.SubscriptionNone
	}
	if u.Preferences.Theme == "" {
		u.Preferences.Theme = "light"
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(id,name,email,password_hash,avatar,role,active,verified,
		sub_tier,sub_status,pref_theme,pref_notify_email,pref_notify_push,pref_categories,pref_difficulty,created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Avatar, u.Role, boolInt(u.Active), boolInt(u.Verified),
		u.Subscription.Tier, u.Subscription.Status, u.Preferences.Theme,
		boolInt(u.Preferences.Notifications.Email), boolInt(u.Preferences.Notifications.Push),
		encodeList(u.Preferences.ContentPreferences.Categories), u.Preferences.ContentPreferences.Difficulty,
		u.CreatedAt)
	if isUnique(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	return u, notFound(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ? COLLATE NOCASE", email))
	return u, notFound(err)
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// UpdateUser writes back profile, role, status and subscription fields.
func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET name=?, avatar=?, role=?, active=?, verified=?,
		sub_tier=?, sub_status=? WHERE id=?`,
		u.Name, u.Avatar, u.Role, boolInt(u.Active), boolInt(u.Verified),
		u.Subscription.Tier, u.Subscription.Status, u.ID)
	return mustAffect(res, err)
}

func (s *Store) SetPassword(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=? WHERE id=?`, hash, id)
	return mustAffect(res, err)
}

func (s *Store) UpdatePreferences(ctx context.Context, id string, p models.Preferences) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET pref_theme=?, pref_notify_email=?, pref_notify_push=?,
		pref_categories=?, pref_difficulty=? WHERE id=?`,
		p.Theme, boolInt(p.Notifications.Email), boolInt(p.Notifications.Push),
		encodeList(p.ContentPreferences.Categories), p.ContentPreferences.Difficulty, id)
	return mustAffect(res, err)
}

func (s *Store) TouchLogin(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login=? WHERE id=?`, s.now().UTC(), id)
	return err
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return mustAffect(res, err)
}

func (s *Store) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CompletedIDs lists content the user has already viewed.
func (s *Store) CompletedIDs(ctx context.Context, userID string) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT content_id FROM completed_content WHERE user_id = ? ORDER BY completed_at`, userID)
}

func (s *Store) SavedIDs(ctx context.Context, userID string) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT content_id FROM saved_content WHERE user_id = ? ORDER BY saved_at`, userID)
}

func (s *Store) Progress(ctx context.Context, userID string) (models.Progress, error) {
	var p models.Progress
	var err error
	if p.CompletedContent, err = s.CompletedIDs(ctx, userID); err != nil {
		return p, err
	}
	if p.SavedContent, err = s.SavedIDs(ctx, userID); err != nil {
		return p, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT cp.category_id, c.name, cp.content_viewed, cp.last_viewed_at
		FROM category_progress cp JOIN categories c ON c.id = cp.category_id
		WHERE cp.user_id = ? ORDER BY cp.last_viewed_at DESC`, userID)
	if err != nil {
		return p, err
	}
	defer rows.Close()
	p.CategoryProgress = []models.CategoryProgress{}
	for rows.Next() {
		var cp models.CategoryProgress
		if err := rows.Scan(&cp.CategoryID, &cp.CategoryName, &cp.ContentViewed, &cp.LastViewedAt); err != nil {
			return p, err
		}
		p.CategoryProgress = append(p.CategoryProgress, cp)
	}
	return p, rows.Err()
}

// UpsertDevice registers token, refreshing lastUsed if it is already known.
func (s *Store) UpsertDevice(ctx context.Context, userID string, d models.DeviceToken) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO device_tokens(user_id,token,platform,last_used) VALUES(?,?,?,?)
		ON CONFLICT(user_id,token) DO UPDATE SET last_used=excluded.last_used`,
		userID, d.Token, d.Platform, s.now().UTC())
	return err
}

func (s *Store) RemoveDevice(ctx context.Context, userID, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE user_id = ? AND token = ?`, userID, token)
	return err
}

func (s *Store) Devices(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token, platform, last_used FROM device_tokens WHERE user_id = ? ORDER BY last_used DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.DeviceToken{}
	for rows.Next() {
		var d models.DeviceToken
		if err := rows.Scan(&d.Token, &d.Platform, &d.LastUsed); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type UserAnalytics struct {
	Total     int      `json:"total"`
	Active    int      `json:"active"`
	NewLast30 int      `json:"newLast30Days"`
	ByRole    []Bucket `json:"byRole"`
	ByTier    []Bucket `json:"byTier"`
}

func (s *Store) UserAnalytics(ctx context.Context) (UserAnalytics, error) {
	var a UserAnalytics
	since := s.now().Add(-30 * 24 * time.Hour).UTC()
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), IFNULL(SUM(active),0),
		IFNULL(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END),0) FROM users`, since).
		Scan(&a.Total, &a.Active, &a.NewLast30)
	if err != nil {
		return a, err
	}
	if a.ByRole, err = s.buckets(ctx, "users", "role"); err != nil {
		return a, err
	}
	a.ByTier, err = s.buckets(ctx, "users", "sub_tier")
	return a, err
}
