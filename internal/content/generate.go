package content

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"windspire/internal/bullets"
	"windspire/internal/dedup"
	"windspire/internal/generator"
	"windspire/internal/models"
	"windspire/internal/prompts"
	"windspire/internal/store"
)

const defaultRewriteModel = "o3"

// modelResolver is implemented by generators that map requested model
// names onto the ones they can serve.
type modelResolver interface {
	ResolveModel(model string) string
}

func (s *Service) model(requested string) string {
	if requested == "" {
		requested = s.cfg.Model
	}
	if r, ok := s.gen.(modelResolver); ok {
		return r.ResolveModel(requested)
	}
	return requested
}

func (s *Service) generate(ctx context.Context, req generator.Request) (string, error) {
	text, err := s.gen.Generate(ctx, req)
	if errors.Is(err, generator.ErrDisabled) {
		return "", &Error{Status: http.StatusServiceUnavailable, Message: "Content generation is not configured"}
	}
	return text, err
}

type GenerateRequest struct {
	CategoryID  string             `json:"categoryId"`
	ContentType models.ContentType `json:"contentType"`
	Count       int                `json:"count"`
	Difficulty  models.Difficulty  `json:"difficulty"`
	Model       string             `json:"model"`
	Topic       string             `json:"topic"`
}

// prompt picks the template for a category: a category specific one,
// then the active default for the type, then the category's own prompt,
// then the built-in fallback.
func (s *Service) prompt(ctx context.Context, cat models.Category, ct models.ContentType) (system, tmpl string, err error) {
	pt, err := s.store.FindPrompt(ctx, cat.ID, ct)
	switch {
	case err == nil:
		return pt.SystemPrompt, pt.Template, nil
	case !errors.Is(err, store.ErrNotFound):
		return "", "", err
	case strings.TrimSpace(cat.Prompt) != "":
		return "", prompts.FromCategory(cat.Prompt), nil
	}
	return "", prompts.Fallback, nil
}

// GenerateMultiple asks the model for a batch of items in one category,
// splits list-shaped answers and queues everything for moderation.
func (s *Service) GenerateMultiple(ctx context.Context, author models.User, req GenerateRequest) ([]models.Content, error) {
	if req.CategoryID == "" {
		return nil, badRequest("Category ID is required")
	}
	cat, err := s.store.GetCategory(ctx, req.CategoryID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Category")
	}
	if err != nil {
		return nil, err
	}

	ct := req.ContentType
	if ct == "" {
		ct = cat.ContentType
	}
	if ct == "" {
		ct = models.TypeHack
	}
	if !ct.Valid() {
		return nil, badRequest("Invalid content type %q", ct)
	}
	count := req.Count
	if count < 0 {
		return nil, badRequest("Count must be positive")
	}
	if count == 0 {
		count = cat.DefaultNumToGenerate
	}
	if count <= 0 {
		count = s.cfg.DefaultCount
	}
	count = min(count, s.cfg.MaxCount)
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.Beginner
	}
	if !difficulty.Valid() {
		return nil, badRequest("Invalid difficulty %q", difficulty)
	}
	model := s.model(req.Model)

	system, tmpl, err := s.prompt(ctx, cat, ct)
	if err != nil {
		return nil, err
	}
	text, err := prompts.Render(tmpl, prompts.Data{
		Category:    cat.Name,
		ContentType: ct,
		Difficulty:  difficulty,
		Count:       count,
		Topic:       req.Topic,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	answer, err := s.generate(ctx, generator.Request{
		Model:        model,
		SystemPrompt: system,
		Prompt:       text,
		JSON:         true,
	})
	if err != nil {
		return nil, err
	}
	drafts, err := generator.ParseDrafts(answer)
	if err != nil {
		return nil, err
	}

	out := []models.Content{}
	for _, d := range drafts {
		item := models.Content{
			Title:       d.Title,
			Body:        d.Body,
			Summary:     d.Summary,
			Tags:        d.Tags,
			Category:    cat.Ref(),
			Author:      &models.AuthorRef{ID: author.ID, Name: author.Name},
			Status:      models.StatusPending,
			ContentType: ct,
			Difficulty:  difficulty,
			Pool:        models.PoolRegular,
			AIGenerated: true,
			AIModel:     model,
		}
		for _, part := range bullets.Split(item) {
			if err := s.store.CreateContent(ctx, &part); err != nil {
				return out, err
			}
			out = append(out, part)
		}
	}
	s.log.Info("content generated",
		zap.String("category", cat.Name),
		zap.String("contentType", string(ct)),
		zap.String("model", model),
		zap.Int("requested", count),
		zap.Int("drafts", len(drafts)),
		zap.Int("stored", len(out)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

type CategoryFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type GenerateResult struct {
	Content []models.Content
	Failed  []CategoryFailure
}

// GenerateForCategories runs GenerateMultiple for every category with the
// category's own content type. Failures are collected per category; the
// call itself fails only when nothing at all was generated.
func (s *Service) GenerateForCategories(ctx context.Context, author models.User, categoryIDs []string, count int) (GenerateResult, error) {
	if len(categoryIDs) == 0 {
		return GenerateResult{}, badRequest("At least one category ID is required")
	}

	generated := make([][]models.Content, len(categoryIDs))
	failures := make([]string, len(categoryIDs))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, id := range categoryIDs {
		g.Go(func() error {
			items, err := s.GenerateMultiple(ctx, author, GenerateRequest{CategoryID: id, Count: count})
			generated[i] = items
			if err != nil {
				s.log.Warn("category generation failed", zap.String("category", id), zap.Error(err))
				failures[i] = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	res := GenerateResult{Content: []models.Content{}}
	var msgs []string
	for i, id := range categoryIDs {
		res.Content = append(res.Content, generated[i]...)
		if failures[i] != "" {
			res.Failed = append(res.Failed, CategoryFailure{ID: id, Error: failures[i]})
			msgs = append(msgs, failures[i])
		}
	}
	if len(res.Content) == 0 && len(res.Failed) > 0 {
		return res, &Error{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate content for any category: " + strings.Join(msgs, ", "),
		}
	}
	return res, nil
}

// Rewrite has the model reword an item while keeping its meaning.
func (s *Service) Rewrite(ctx context.Context, id, model string) (models.Content, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return c, err
	}
	if model == "" {
		model = defaultRewriteModel
	}
	answer, err := s.generate(ctx, generator.Request{
		Model:  s.model(model),
		Prompt: prompts.Rewrite(c.Title, c.Body),
		JSON:   true,
	})
	if err != nil {
		return models.Content{}, err
	}
	d, err := generator.ParseDraft(answer)
	if err != nil {
		return models.Content{}, err
	}

	c.Title, c.Body, c.Summary = d.Title, d.Body, d.Summary
	if len(d.Tags) > 0 {
		c.Tags = d.Tags
	}
	now := s.now().UTC()
	c.LastRewriteDate = &now
	if err := s.store.UpdateContent(ctx, &c); err != nil {
		return models.Content{}, err
	}
	return c, nil
}

// Duplicates groups every stored item by normalized title. Items load
// oldest first so each group starts with the original.
func (s *Service) Duplicates(ctx context.Context) ([]dedup.Group, error) {
	items, err := s.store.ListContent(ctx, store.ContentFilter{Order: store.OrderOldest})
	if err != nil {
		return nil, err
	}
	return dedup.FindDuplicates(items), nil
}

// RewriteDuplicates keeps the first id and rewrites the others one by one.
func (s *Service) RewriteDuplicates(ctx context.Context, ids []string, model string) ([]ItemResult, error) {
	if len(ids) < 2 {
		return nil, badRequest("At least two content IDs are required")
	}
	out := make([]ItemResult, 0, len(ids)-1)
	for _, id := range ids[1:] {
		r := ItemResult{ID: id, Success: true}
		if _, err := s.Rewrite(ctx, id, model); err != nil {
			r.Success, r.Error = false, err.Error()
		}
		out = append(out, r)
	}
	return out, nil
}
