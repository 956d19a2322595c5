package store

import (
	"context"
	"fmt"

	"windspire/internal/models"
)

const categoryColumns = `id, name, slug, description, icon, color, active, content_type,
	default_num_to_generate, prompt, sort_order, created_at`

func scanCategory(sc scanner) (models.Category, error) {
	var c models.Category
	err := sc.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Icon, &c.Color, &c.Active, &c.ContentType,
		&c.DefaultNumToGenerate, &c.Prompt, &c.Order, &c.CreatedAt)
	return c, err
}

func (s *Store) ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	q := "SELECT " + categoryColumns + " FROM categories"
	if !includeInactive {
		q += " WHERE active = 1"
	}
	rows, err := s.db.QueryContext(ctx, q+" ORDER BY sort_order, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id string) (models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id))
	return c, notFound(err)
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE slug = ?", slug))
	return c, notFound(err)
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	c.ID = newID()
	c.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO categories(id,name,slug,description,icon,color,active,
		content_type,default_num_to_generate,prompt,sort_order,created_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Name, c.Slug, c.Description, c.Icon, c.Color, boolInt(c.Active), c.ContentType,
		c.DefaultNumToGenerate, c.Prompt, c.Order, c.CreatedAt)
	if isUnique(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c models.Category) error {
	res, err := s.db.ExecContext(ctx, `UPDATE categories SET name=?, slug=?, description=?, icon=?, color=?,
		active=?, content_type=?, default_num_to_generate=?, prompt=?, sort_order=? WHERE id=?`,
		c.Name, c.Slug, c.Description, c.Icon, c.Color, boolInt(c.Active), c.ContentType,
		c.DefaultNumToGenerate, c.Prompt, c.Order, c.ID)
	return mustAffect(res, err)
}

// DeleteCategory refuses with ErrInUse while content still points at it.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content WHERE category_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrInUse
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return mustAffect(res, err)
}

func (s *Store) ActivateAllCategories(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE categories SET active = 1 WHERE active = 0`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type CategoryPoolStats struct {
	models.Category
	Pools map[models.Pool]int `json:"pools"`
	Total int                 `json:"total"`
}

func (s *Store) CategoryPoolStats(ctx context.Context) ([]CategoryPoolStats, error) {
	cats, err := s.ListCategories(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryPoolStats, len(cats))
	index := make(map[string]int, len(cats))
	for i, c := range cats {
		out[i] = CategoryPoolStats{Category: c, Pools: map[models.Pool]int{}}
		for _, p := range models.AllPools {
			out[i].Pools[p] = 0
		}
		index[c.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category_id, pool, COUNT(*) FROM content GROUP BY category_id, pool`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var catID string
		var pool models.Pool
		var n int
		if err := rows.Scan(&catID, &pool, &n); err != nil {
			return nil, err
		}
		if i, ok := index[catID]; ok {
			out[i].Pools[pool] = n
			out[i].Total += n
		}
	}
	return out, rows.Err()
}
