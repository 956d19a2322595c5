package store

import (
	"context"
	"database/sql"
	"fmt"

	"windspire/internal/models"
)

const promptColumns = `id, name, category_id, content_type, system_prompt, template, active, is_default,
	created_at, updated_at`

func scanPrompt(sc scanner) (models.PromptTemplate, error) {
	var p models.PromptTemplate
	var cat sql.NullString
	err := sc.Scan(&p.ID, &p.Name, &cat, &p.ContentType, &p.SystemPrompt, &p.Template, &p.Active,
		&p.IsDefault, &p.CreatedAt, &p.UpdatedAt)
	p.CategoryID = cat.String
	return p, err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *Store) ListPrompts(ctx context.Context, categoryID string, ct models.ContentType) ([]models.PromptTemplate, error) {
	q := "SELECT " + promptColumns + " FROM prompt_templates WHERE 1=1"
	var args []any
	if categoryID != "" {
		q += " AND category_id = ?"
		args = append(args, categoryID)
	}
	if ct != "" {
		q += " AND content_type = ?"
		args = append(args, ct)
	}
	rows, err := s.db.QueryContext(ctx, q+" ORDER BY name", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.PromptTemplate{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPrompt(ctx context.Context, id string) (models.PromptTemplate, error) {
	p, err := scanPrompt(s.db.QueryRowContext(ctx, "SELECT "+promptColumns+" FROM prompt_templates WHERE id = ?", id))
	return p, notFound(err)
}

// FindPrompt picks the active template for a category and content type,
// preferring a category-specific one over the default for the type.
func (s *Store) FindPrompt(ctx context.Context, categoryID string, ct models.ContentType) (models.PromptTemplate, error) {
	p, err := scanPrompt(s.db.QueryRowContext(ctx, "SELECT "+promptColumns+` FROM prompt_templates
		WHERE active = 1 AND content_type = ? AND (category_id = ? OR (category_id IS NULL AND is_default = 1))
		ORDER BY category_id IS NULL, updated_at DESC LIMIT 1`, ct, categoryID))
	return p, notFound(err)
}

func (s *Store) CreatePrompt(ctx context.Context, p *models.PromptTemplate) error {
	now := s.now().UTC()
	p.ID = newID()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, `INSERT INTO prompt_templates(id,name,category_id,content_type,system_prompt,
		template,active,is_default,created_at,updated_at) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, nullString(p.CategoryID), p.ContentType, p.SystemPrompt, p.Template,
		boolInt(p.Active), boolInt(p.IsDefault), now, now)
	if isUnique(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	return nil
}

func (s *Store) UpdatePrompt(ctx context.Context, p *models.PromptTemplate) error {
	p.UpdatedAt = s.now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE prompt_templates SET name=?, category_id=?, content_type=?,
		system_prompt=?, template=?, active=?, is_default=?, updated_at=? WHERE id=?`,
		p.Name, nullString(p.CategoryID), p.ContentType, p.SystemPrompt, p.Template,
		boolInt(p.Active), boolInt(p.IsDefault), p.UpdatedAt, p.ID)
	return mustAffect(res, err)
}

func (s *Store) DeletePrompt(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompt_templates WHERE id = ?`, id)
	return mustAffect(res, err)
}

func (s *Store) PromptNameExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompt_templates WHERE name = ?`, name).Scan(&n)
	return n > 0, err
}
