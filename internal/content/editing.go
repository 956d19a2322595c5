package content

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"windspire/internal/models"
	"windspire/internal/store"
)

// Changes carries the editable fields of an item. Nil fields are left
// alone on update.
type Changes struct {
	Title       *string             `json:"title"`
	Body        *string             `json:"body"`
	Summary     *string             `json:"summary"`
	CategoryID  *string             `json:"category"`
	Tags        []string            `json:"tags"`
	Status      *models.Status      `json:"status"`
	ContentType *models.ContentType `json:"contentType"`
	Difficulty  *models.Difficulty  `json:"difficulty"`
	Pool        *models.Pool        `json:"pool"`
	Premium     *bool               `json:"premium"`
	PublishDate *time.Time          `json:"publishDate"`
}

func (s *Service) apply(ctx context.Context, c *models.Content, ch Changes) error {
	if ch.Title != nil {
		c.Title = strings.TrimSpace(*ch.Title)
	}
	if ch.Body != nil {
		c.Body = strings.TrimSpace(*ch.Body)
	}
	if ch.Summary != nil {
		c.Summary = strings.TrimSpace(*ch.Summary)
	}
	if ch.Tags != nil {
		c.Tags = ch.Tags
	}
	if ch.Status != nil {
		if !ch.Status.Valid() {
			return badRequest("Invalid status %q", *ch.Status)
		}
		c.Status = *ch.Status
	}
	if ch.ContentType != nil {
		if !ch.ContentType.Valid() {
			return badRequest("Invalid content type %q", *ch.ContentType)
		}
		c.ContentType = *ch.ContentType
	}
	if ch.Difficulty != nil {
		if !ch.Difficulty.Valid() {
			return badRequest("Invalid difficulty %q", *ch.Difficulty)
		}
		c.Difficulty = *ch.Difficulty
	}
	if ch.Pool != nil {
		if !ch.Pool.Valid() {
			return badRequest("Invalid pool %q", *ch.Pool)
		}
		c.Pool = *ch.Pool
	}
	if ch.Premium != nil {
		c.Premium = *ch.Premium
	}
	if ch.PublishDate != nil {
		t := ch.PublishDate.UTC()
		c.PublishDate = &t
	}
	if ch.CategoryID != nil && *ch.CategoryID != c.Category.ID {
		cat, err := s.store.GetCategory(ctx, *ch.CategoryID)
		if errors.Is(err, store.ErrNotFound) {
			return notFound("Category")
		}
		if err != nil {
			return err
		}
		c.Category = cat.Ref()
	}

	if c.Title == "" || c.Body == "" {
		return badRequest("Title and body are required")
	}
	if c.Category.ID == "" {
		return badRequest("Category is required")
	}
	if c.Summary == "" {
		c.Summary = models.Summarize(c.Body)
	}
	if c.Status == models.StatusPublished && c.PublishDate == nil {
		now := s.now().UTC()
		c.PublishDate = &now
	}
	return nil
}

// Create stores a new item written by author.
func (s *Service) Create(ctx context.Context, author models.User, ch Changes) (models.Content, error) {
	c := models.Content{
		Author:      &models.AuthorRef{ID: author.ID, Name: author.Name},
		Tags:        []string{},
		Status:      models.StatusDraft,
		ContentType: models.TypeHack,
		Difficulty:  models.Beginner,
		Pool:        models.PoolRegular,
	}
	if err := s.apply(ctx, &c, ch); err != nil {
		return models.Content{}, err
	}
	if err := s.store.CreateContent(ctx, &c); err != nil {
		return models.Content{}, err
	}
	return s.store.GetContent(ctx, c.ID)
}

func (s *Service) Update(ctx context.Context, id string, ch Changes) (models.Content, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return c, err
	}
	if err := s.apply(ctx, &c, ch); err != nil {
		return models.Content{}, err
	}
	if err := s.store.UpdateContent(ctx, &c); err != nil {
		return models.Content{}, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.DeleteContent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Content")
	}
	return err
}

// Recycle moves a published item into today's window.
func (s *Service) Recycle(ctx context.Context, id string) (models.Content, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return c, err
	}
	if c.Status != models.StatusPublished {
		return models.Content{}, badRequest("Only published content can be recycled")
	}
	now := s.now().UTC()
	c.PublishDate = &now
	if err := s.store.UpdateContent(ctx, &c); err != nil {
		return models.Content{}, err
	}
	return c, nil
}

// Moderate approves or rejects an item on behalf of moderator.
func (s *Service) Moderate(ctx context.Context, moderator models.User, id, action, notes string) (models.Content, error) {
	var status models.Status
	switch action {
	case "approve":
		status = models.StatusPublished
	case "reject":
		status = models.StatusRejected
	default:
		return models.Content{}, badRequest("Action must be either \"approve\" or \"reject\"")
	}
	c, err := s.get(ctx, id)
	if err != nil {
		return c, err
	}
	now := s.now().UTC()
	c.Status = status
	if status == models.StatusPublished && c.PublishDate == nil {
		c.PublishDate = &now
	}
	c.Moderation = models.Moderation{Notes: notes, ModeratedBy: moderator.ID, ModeratedAt: &now}
	if err := s.store.UpdateContent(ctx, &c); err != nil {
		return models.Content{}, err
	}
	s.log.Info("content moderated",
		zap.String("content", c.ID),
		zap.String("action", action),
		zap.String("moderator", moderator.ID))
	return c, nil
}

// Pending lists the moderation queue, oldest first.
func (s *Service) Pending(ctx context.Context) ([]models.Content, error) {
	return s.store.ListContent(ctx, store.ContentFilter{Status: models.StatusPending, Order: store.OrderOldest})
}

type ItemResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DeleteMany deletes each id independently and reports per id.
func (s *Service) DeleteMany(ctx context.Context, ids []string) ([]ItemResult, error) {
	if len(ids) == 0 {
		return nil, badRequest("At least one content ID is required")
	}
	out := make([]ItemResult, 0, len(ids))
	for _, id := range ids {
		r := ItemResult{ID: id, Success: true}
		if err := s.Delete(ctx, id); err != nil {
			r.Success, r.Error = false, err.Error()
		}
		out = append(out, r)
	}
	return out, nil
}
