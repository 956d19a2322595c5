// Package content implements the reading side of the catalogue (listing,
// the daily rotation, rating and the user's library) and the staff side
// (editing, moderation and AI generation).
package content

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"windspire/internal/generator"
	"windspire/internal/models"
	"windspire/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	poolListLimit   = 100
)

type Config struct {
	// Model is used when a generation request names none.
	Model        string
	DefaultCount int
	MaxCount     int
	Concurrency  int
	// Location decides where the daily window starts.
	Location *time.Location
}

type Service struct {
	store *store.Store
	gen   generator.Generator
	cfg   Config
	log   *zap.Logger
	now   func() time.Time
}

func NewService(st *store.Store, gen generator.Generator, cfg Config, logger *zap.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = 5
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, gen: gen, cfg: cfg, log: logger, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListQuery is the filter set accepted by ListContent.
type ListQuery struct {
	Status      models.Status
	CategoryID  string
	ContentType models.ContentType
	Difficulty  models.Difficulty
	Pool        models.Pool
	Search      string
	Page        int
	Limit       int
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

type Page struct {
	Items      []models.Content
	Pagination Pagination
}

func (q ListQuery) validate() error {
	if q.Status != "" && !q.Status.Valid() {
		return badRequest("Invalid status %q", q.Status)
	}
	if q.ContentType != "" && !q.ContentType.Valid() {
		return badRequest("Invalid content type %q", q.ContentType)
	}
	if q.Difficulty != "" && !q.Difficulty.Valid() {
		return badRequest("Invalid difficulty %q", q.Difficulty)
	}
	if q.Pool != "" && !q.Pool.Valid() {
		return badRequest("Invalid pool %q", q.Pool)
	}
	return nil
}

// ListContent returns one page of content, newest first. Only staff may
// look at anything other than published items.
func (s *Service) ListContent(ctx context.Context, viewer models.User, q ListQuery) (Page, error) {
	if err := q.validate(); err != nil {
		return Page{}, err
	}
	if !viewer.Role.IsStaff() {
		q.Status = models.StatusPublished
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}

	f := store.ContentFilter{
		Status:      q.Status,
		CategoryID:  q.CategoryID,
		ContentType: q.ContentType,
		Difficulty:  q.Difficulty,
		Pool:        q.Pool,
		Search:      strings.TrimSpace(q.Search),
	}
	total, err := s.store.CountContent(ctx, f)
	if err != nil {
		return Page{}, err
	}
	f.Order = store.OrderNewest
	f.Limit = q.Limit
	f.Offset = (q.Page - 1) * q.Limit
	items, err := s.store.ListContent(ctx, f)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Items: items,
		Pagination: Pagination{
			Total: total,
			Page:  q.Page,
			Pages: int(math.Ceil(float64(total) / float64(q.Limit))),
			Limit: q.Limit,
		},
	}, nil
}

// DailyWindow returns the start and end of the day containing t in the
// configured location.
func (s *Service) DailyWindow(t time.Time) (time.Time, time.Time) {
	local := t.In(s.cfg.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
	return start, start.AddDate(0, 0, 1)
}

// DailyContent builds a user's feed for today. Items published today come
// first; the rest of the tier's allowance is filled from the rating pools,
// best pool first and least used first, skipping anything the user has
// already read. Fill items count as used.
func (s *Service) DailyContent(ctx context.Context, user models.User, categorySlug string, ct models.ContentType) ([]models.Content, error) {
	if ct == "" {
		ct = models.TypeHack
	}
	if !ct.Valid() {
		return nil, badRequest("Invalid content type %q", ct)
	}

	base := store.ContentFilter{Status: models.StatusPublished, ContentType: ct}
	if categorySlug != "" {
		cat, err := s.store.GetCategoryBySlug(ctx, categorySlug)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !cat.Active) {
			return nil, notFound("Category")
		}
		if err != nil {
			return nil, err
		}
		base.CategoryID = cat.ID
	}
	if user.Subscription.Tier == models.TierFree || user.Subscription.Tier == "" {
		free := false
		base.Premium = &free
	}
	limit := user.Subscription.Tier.DailyLimit()
	now := s.now()

	today := base
	start, end := s.DailyWindow(now)
	today.PublishedFrom, today.PublishedTo = &start, &end
	today.Order = store.OrderPublishDesc
	today.Limit = limit
	items, err := s.store.ListContent(ctx, today)
	if err != nil {
		return nil, err
	}
	if len(items) >= limit {
		return items, nil
	}

	completed, err := s.store.CompletedIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	exclude := completed
	for _, c := range items {
		exclude = append(exclude, c.ID)
	}

	var fill []string
	for _, pool := range models.RotationPools {
		need := limit - len(items)
		if need <= 0 {
			break
		}
		f := base
		f.Pool = pool
		f.ExcludeIDs = exclude
		f.Order = store.OrderLeastUsed
		f.Limit = need
		got, err := s.store.ListContent(ctx, f)
		if err != nil {
			return nil, err
		}
		for i := range got {
			got[i].UsageCount++
			used := now.UTC()
			got[i].LastUsedDate = &used
			exclude = append(exclude, got[i].ID)
			fill = append(fill, got[i].ID)
		}
		items = append(items, got...)
	}

	if err := s.store.MarkUsed(ctx, fill, now); err != nil {
		return nil, err
	}
	s.log.Debug("daily content",
		zap.String("user", user.ID),
		zap.String("category", categorySlug),
		zap.Int("limit", limit),
		zap.Int("fresh", len(items)-len(fill)),
		zap.Int("filled", len(fill)))
	return items, nil
}

// ContentByPool lists up to 100 items of one pool, newest first.
func (s *Service) ContentByPool(ctx context.Context, pool models.Pool, categoryID string, ct models.ContentType) ([]models.Content, error) {
	if pool == "" {
		pool = models.PoolRegular
	}
	if !pool.Valid() {
		return nil, badRequest("Invalid pool %q", pool)
	}
	if ct != "" && !ct.Valid() {
		return nil, badRequest("Invalid content type %q", ct)
	}
	return s.store.ListContent(ctx, store.ContentFilter{
		Pool:        pool,
		CategoryID:  categoryID,
		ContentType: ct,
		Order:       store.OrderNewest,
		Limit:       poolListLimit,
	})
}

func (s *Service) get(ctx context.Context, id string) (models.Content, error) {
	c, err := s.store.GetContent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c, notFound("Content")
	}
	return c, err
}

// GetContent returns one item and records that user viewed it.
func (s *Service) GetContent(ctx context.Context, user models.User, id string) (models.Content, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return c, err
	}
	if c.Premium && (user.Subscription.Tier == models.TierFree || user.Subscription.Tier == "") {
		return models.Content{}, errPremium
	}
	if err := s.store.RecordView(ctx, user.ID, c); err != nil {
		return c, err
	}
	c.Stats.Views++
	return c, nil
}

type Rating struct {
	Rating   string      `json:"rating"`
	Likes    int         `json:"likes"`
	Dislikes int         `json:"dislikes"`
	Pool     models.Pool `json:"pool"`
}

// Rate applies "like" or "dislike" and returns the new counts.
func (s *Service) Rate(ctx context.Context, user models.User, id, rating string) (Rating, error) {
	if rating != "like" && rating != "dislike" {
		return Rating{}, badRequest("Rating must be either \"like\" or \"dislike\"")
	}
	c, err := s.store.Rate(ctx, user.ID, id, rating == "like")
	if errors.Is(err, store.ErrNotFound) {
		return Rating{}, notFound("Content")
	}
	if err != nil {
		return Rating{}, err
	}
	return Rating{Rating: rating, Likes: c.Stats.Likes, Dislikes: c.Stats.Dislikes, Pool: c.Pool}, nil
}

func (s *Service) Save(ctx context.Context, user models.User, id string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	err := s.store.Save(ctx, user.ID, id)
	if errors.Is(err, store.ErrConflict) {
		return badRequest("Content already saved")
	}
	return err
}

func (s *Service) Unsave(ctx context.Context, user models.User, id string) error {
	return s.store.Unsave(ctx, user.ID, id)
}

// Saved lists the user's library, most recently updated first.
func (s *Service) Saved(ctx context.Context, user models.User) ([]models.Content, error) {
	return s.store.ListContent(ctx, store.ContentFilter{SavedBy: user.ID, Order: store.OrderUpdatedDesc})
}

func (s *Service) Share(ctx context.Context, id string) (int, error) {
	n, err := s.store.Share(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return 0, notFound("Content")
	}
	return n, err
}
