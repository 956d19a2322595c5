package store

import (
	"context"
	"fmt"

	"windspire/internal/models"
)

const planColumns = `id, name, tier, price_cents, currency, interval, features, daily_limit, active, created_at`

func scanPlan(sc scanner) (models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	var features string
	err := sc.Scan(&p.ID, &p.Name, &p.Tier, &p.PriceCents, &p.Currency, &p.Interval, &features,
		&p.DailyLimit, &p.Active, &p.CreatedAt)
	p.Features = decodeList(features)
	return p, err
}

func (s *Store) ListPlans(ctx context.Context, includeInactive bool) ([]models.SubscriptionPlan, error) {
	q := "SELECT " + planColumns + " FROM subscription_plans"
	if !includeInactive {
		q += " WHERE active = 1"
	}
	rows, err := s.db.QueryContext(ctx, q+" ORDER BY price_cents, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.SubscriptionPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPlan(ctx context.Context, id string) (models.SubscriptionPlan, error) {
	p, err := scanPlan(s.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM subscription_plans WHERE id = ?", id))
	return p, notFound(err)
}

func (s *Store) CreatePlan(ctx context.Context, p *models.SubscriptionPlan) error {
	p.ID = newID()
	p.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO subscription_plans(id,name,tier,price_cents,currency,interval,
		features,daily_limit,active,created_at) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Tier, p.PriceCents, p.Currency, p.Interval, encodeList(p.Features),
		p.DailyLimit, boolInt(p.Active), p.CreatedAt)
	if isUnique(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (s *Store) UpdatePlan(ctx context.Context, p models.SubscriptionPlan) error {
	res, err := s.db.ExecContext(ctx, `UPDATE subscription_plans SET name=?, tier=?, price_cents=?, currency=?,
		interval=?, features=?, daily_limit=?, active=? WHERE id=?`,
		p.Name, p.Tier, p.PriceCents, p.Currency, p.Interval, encodeList(p.Features),
		p.DailyLimit, boolInt(p.Active), p.ID)
	return mustAffect(res, err)
}

func (s *Store) DeletePlan(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscription_plans WHERE id = ?`, id)
	return mustAffect(res, err)
}
