package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"windspire/internal/models"
)

type Order int

const (
	OrderNewest Order = iota
	OrderOldest
	OrderPublishDesc
	OrderLeastUsed
	OrderUpdatedDesc
	OrderLikesDesc
)

var orderSQL = map[Order]string{
	OrderNewest:      "c.created_at DESC, c.id",
	OrderOldest:      "c.created_at ASC, c.id",
	OrderPublishDesc: "c.publish_date DESC, c.id",
	OrderLeastUsed:   "c.usage_count ASC, c.last_used_date ASC, c.id",
	OrderUpdatedDesc: "c.updated_at DESC, c.id",
	OrderLikesDesc:   "c.likes DESC, c.id",
}

// ContentFilter narrows a content query. Zero fields are ignored.
type ContentFilter struct {
	IDs           []string
	ExcludeIDs    []string
	Status        models.Status
	CategoryID    string
	ContentType   models.ContentType
	Difficulty    models.Difficulty
	Pool          models.Pool
	Search        string
	Premium       *bool
	PublishedFrom *time.Time
	PublishedTo   *time.Time
	SavedBy       string
	Order         Order
	Limit         int
	Offset        int
}

func (f ContentFilter) where() (string, []any) {
	var joins []string
	var wheres []string
	var args []any

	if f.SavedBy != "" {
		joins = append(joins, "JOIN saved_content sc ON sc.content_id=c.id AND sc.user_id = ?")
		args = append(args, f.SavedBy)
	}
	if len(f.IDs) > 0 {
		wheres = append(wheres, "c.id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if len(f.ExcludeIDs) > 0 {
		wheres = append(wheres, "c.id NOT IN ("+placeholders(len(f.ExcludeIDs))+")")
		for _, id := range f.ExcludeIDs {
			args = append(args, id)
		}
	}
	if f.Status != "" {
		wheres = append(wheres, "c.status = ?")
		args = append(args, f.Status)
	}
	if f.CategoryID != "" {
		wheres = append(wheres, "c.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.ContentType != "" {
		wheres = append(wheres, "c.content_type = ?")
		args = append(args, f.ContentType)
	}
	if f.Difficulty != "" {
		wheres = append(wheres, "c.difficulty = ?")
		args = append(args, f.Difficulty)
	}
	if f.Pool != "" {
		wheres = append(wheres, "c.pool = ?")
		args = append(args, f.Pool)
	}
	if f.Premium != nil {
		wheres = append(wheres, "c.premium = ?")
		args = append(args, boolInt(*f.Premium))
	}
	if f.PublishedFrom != nil {
		wheres = append(wheres, "c.publish_date >= ?")
		args = append(args, f.PublishedFrom.UTC())
	}
	if f.PublishedTo != nil {
		wheres = append(wheres, "c.publish_date < ?")
		args = append(args, f.PublishedTo.UTC())
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		wheres = append(wheres, `(c.title LIKE ? ESCAPE '\' OR c.summary LIKE ? ESCAPE '\'
			OR c.body LIKE ? ESCAPE '\' OR c.tags LIKE ? ESCAPE '\')`)
		args = append(args, p, p, p, p)
	}

	q := ""
	if len(joins) > 0 {
		q += " " + strings.Join(joins, " ")
	}
	if len(wheres) > 0 {
		q += " WHERE " + strings.Join(wheres, " AND ")
	}
	return q, args
}

const contentColumns = `c.id, c.title, c.body, c.summary, c.tags, c.status, c.content_type,
	c.difficulty, c.pool, c.premium, c.publish_date, c.usage_count, c.last_used_date,
	c.last_rewrite_date, c.moderation_notes, c.moderated_by, c.moderated_at,
	c.views, c.likes, c.dislikes, c.saves, c.shares, c.ai_generated, c.ai_model,
	c.created_at, c.updated_at,
	cat.id, cat.name, cat.slug, cat.icon, cat.color, u.id, u.name`

const contentFrom = ` FROM content c JOIN categories cat ON cat.id=c.category_id
	LEFT JOIN users u ON u.id=c.author_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanContent(sc scanner) (models.Content, error) {
	var c models.Content
	var tags string
	var publish, lastUsed, rewrite, moderated sql.NullTime
	var authorID, authorName sql.NullString
	err := sc.Scan(&c.ID, &c.Title, &c.Body, &c.Summary, &tags, &c.Status, &c.ContentType,
		&c.Difficulty, &c.Pool, &c.Premium, &publish, &c.UsageCount, &lastUsed,
		&rewrite, &c.Moderation.Notes, &c.Moderation.ModeratedBy, &moderated,
		&c.Stats.Views, &c.Stats.Likes, &c.Stats.Dislikes, &c.Stats.Saves, &c.Stats.Shares,
		&c.AIGenerated, &c.AIModel, &c.CreatedAt, &c.UpdatedAt,
		&c.Category.ID, &c.Category.Name, &c.Category.Slug, &c.Category.Icon, &c.Category.Color,
		&authorID, &authorName)
	if err != nil {
		return c, err
	}
	c.Tags = decodeList(tags)
	c.PublishDate = timePtr(publish)
	c.LastUsedDate = timePtr(lastUsed)
	c.LastRewriteDate = timePtr(rewrite)
	c.Moderation.ModeratedAt = timePtr(moderated)
	if authorID.Valid {
		c.Author = &models.AuthorRef{ID: authorID.String, Name: authorName.String}
	}
	return c, nil
}

func listContent(ctx context.Context, q queryer, f ContentFilter) ([]models.Content, error) {
	where, args := f.where()
	query := "SELECT " + contentColumns + contentFrom + where + " ORDER BY " + orderSQL[f.Order]
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	items := []models.Content{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (s *Store) ListContent(ctx context.Context, f ContentFilter) ([]models.Content, error) {
	return listContent(ctx, s.db, f)
}

func (s *Store) CountContent(ctx context.Context, f ContentFilter) (int, error) {
	where, args := f.where()
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM content c"+where, args...).Scan(&n)
	return n, err
}

func getContent(ctx context.Context, q queryer, id string) (models.Content, error) {
	row := q.QueryRowContext(ctx, "SELECT "+contentColumns+contentFrom+" WHERE c.id = ?", id)
	c, err := scanContent(row)
	return c, notFound(err)
}

func (s *Store) GetContent(ctx context.Context, id string) (models.Content, error) {
	return getContent(ctx, s.db, id)
}

// CreateContent inserts c, assigning its ID and timestamps.
func (s *Store) CreateContent(ctx context.Context, c *models.Content) error {
	now := s.now().UTC()
	c.ID = newID()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Tags == nil {
		c.Tags = []string{}
	}
	var author any
	if c.Author != nil {
		author = c.Author.ID
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO content(id,title,body,summary,category_id,author_id,tags,
		status,content_type,difficulty,pool,premium,publish_date,ai_generated,ai_model,created_at,updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Title, c.Body, c.Summary, c.Category.ID, author, encodeList(c.Tags),
		c.Status, c.ContentType, c.Difficulty, c.Pool, boolInt(c.Premium), nullTime(c.PublishDate),
		boolInt(c.AIGenerated), c.AIModel, now, now)
	if err != nil {
		return fmt.Errorf("insert content: %w", err)
	}
	return nil
}

// UpdateContent writes back the editable fields of c.
func (s *Store) UpdateContent(ctx context.Context, c *models.Content) error {
	c.UpdatedAt = s.now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE content SET title=?, body=?, summary=?, category_id=?,
		tags=?, status=?, content_type=?, difficulty=?, pool=?, premium=?, publish_date=?,
		last_rewrite_date=?, moderation_notes=?, moderated_by=?, moderated_at=?, updated_at=?
		WHERE id=?`,
		c.Title, c.Body, c.Summary, c.Category.ID, encodeList(c.Tags), c.Status, c.ContentType,
		c.Difficulty, c.Pool, boolInt(c.Premium), nullTime(c.PublishDate), nullTime(c.LastRewriteDate),
		c.Moderation.Notes, c.Moderation.ModeratedBy, nullTime(c.Moderation.ModeratedAt),
		c.UpdatedAt, c.ID)
	return mustAffect(res, err)
}

func (s *Store) DeleteContent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM content WHERE id = ?`, id)
	return mustAffect(res, err)
}

// MarkUsed bumps the rotation counters of ids in one transaction.
func (s *Store) MarkUsed(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE content SET usage_count = usage_count + 1, last_used_date = ? WHERE id = ?`,
				at.UTC(), id); err != nil {
				return fmt.Errorf("mark used %s: %w", id, err)
			}
		}
		return nil
	})
}

// RecordView counts a view of c by userID and updates the user's progress.
func (s *Store) RecordView(ctx context.Context, userID string, c models.Content) error {
	now := s.now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE content SET views = views + 1 WHERE id = ?`, c.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET total_content_viewed = total_content_viewed + 1 WHERE id = ?`, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO completed_content(user_id,content_id,completed_at) VALUES(?,?,?)`,
			userID, c.ID, now); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO category_progress(user_id,category_id,content_viewed,last_viewed_at)
			VALUES(?,?,1,?)`, userID, c.Category.ID, now)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			_, err = tx.ExecContext(ctx,
				`UPDATE users SET categories_explored = categories_explored + 1 WHERE id = ?`, userID)
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE category_progress SET content_viewed = content_viewed + 1,
			last_viewed_at = ? WHERE user_id = ? AND category_id = ?`, now, userID, c.Category.ID)
		return err
	})
}

// Rate applies a like or dislike and recomputes the pool. It returns the
// updated item.
func (s *Store) Rate(ctx context.Context, userID, contentID string, like bool) (models.Content, error) {
	var out models.Content
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := getContent(ctx, tx, contentID)
		if err != nil {
			return err
		}
		userCol := "total_dislikes"
		if like {
			c.Stats.Likes++
			userCol = "total_likes"
		} else {
			c.Stats.Dislikes++
		}
		c.UpdatePool()
		if _, err := tx.ExecContext(ctx, `UPDATE content SET likes=?, dislikes=?, pool=? WHERE id=?`,
			c.Stats.Likes, c.Stats.Dislikes, c.Pool, c.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET `+userCol+` = `+userCol+` + 1 WHERE id = ?`, userID); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// Save adds contentID to the user's library. ErrConflict if already there.
func (s *Store) Save(ctx context.Context, userID, contentID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO saved_content(user_id,content_id,saved_at) VALUES(?,?,?)`,
			userID, contentID, s.now().UTC())
		if isUnique(err) {
			return ErrConflict
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE content SET saves = saves + 1 WHERE id = ?`, contentID)
		return err
	})
}

func (s *Store) Unsave(ctx context.Context, userID, contentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM saved_content WHERE user_id = ? AND content_id = ?`,
		userID, contentID)
	return err
}

func (s *Store) IsSaved(ctx context.Context, userID, contentID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_content WHERE user_id = ? AND content_id = ?`,
		userID, contentID).Scan(&n)
	return n > 0, err
}

// Share increments the share counter and returns the new value.
func (s *Store) Share(ctx context.Context, id string) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE content SET shares = shares + 1 WHERE id = ?`, id)
	if err := mustAffect(res, err); err != nil {
		return 0, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, `SELECT shares FROM content WHERE id = ?`, id).Scan(&n)
	return n, err
}

type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type ContentAnalytics struct {
	Total    int                 `json:"total"`
	ByStatus []Bucket            `json:"byStatus"`
	ByPool   []Bucket            `json:"byPool"`
	ByType   []Bucket            `json:"byType"`
	Stats    models.ContentStats `json:"stats"`
	TopLiked []models.Content    `json:"topLiked"`
}

func (s *Store) ContentAnalytics(ctx context.Context) (ContentAnalytics, error) {
	var a ContentAnalytics
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), IFNULL(SUM(views),0), IFNULL(SUM(likes),0),
		IFNULL(SUM(dislikes),0), IFNULL(SUM(saves),0), IFNULL(SUM(shares),0) FROM content`).
		Scan(&a.Total, &a.Stats.Views, &a.Stats.Likes, &a.Stats.Dislikes, &a.Stats.Saves, &a.Stats.Shares)
	if err != nil {
		return a, err
	}
	if a.ByStatus, err = s.buckets(ctx, "content", "status"); err != nil {
		return a, err
	}
	if a.ByPool, err = s.buckets(ctx, "content", "pool"); err != nil {
		return a, err
	}
	if a.ByType, err = s.buckets(ctx, "content", "content_type"); err != nil {
		return a, err
	}
	a.TopLiked, err = s.ListContent(ctx, ContentFilter{Order: OrderLikesDesc, Limit: 5})
	return a, err
}

// buckets groups table by col. Both names are constants from this package.
func (s *Store) buckets(ctx context.Context, table, col string) ([]Bucket, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+col+", COUNT(*) FROM "+table+" GROUP BY "+col+" ORDER BY "+col)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Bucket{}
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
