package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"windspire/internal/models"
	"windspire/internal/prompts"
	"windspire/internal/store"
)

type promptInput struct {
	Name         *string             `json:"name"`
	CategoryID   *string             `json:"category"`
	ContentType  *models.ContentType `json:"contentType"`
	SystemPrompt *string             `json:"systemPrompt"`
	Template     *string             `json:"template"`
	Active       *bool               `json:"active"`
	IsDefault    *bool               `json:"isDefault"`
}

func (h *Handler) applyPrompt(r *http.Request, in promptInput, p *models.PromptTemplate) (string, error) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
	}
	if in.ContentType != nil {
		p.ContentType = *in.ContentType
	}
	if in.SystemPrompt != nil {
		p.SystemPrompt = *in.SystemPrompt
	}
	if in.Template != nil {
		p.Template = *in.Template
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if in.IsDefault != nil {
		p.IsDefault = *in.IsDefault
	}

	if p.Name == "" {
		return "Prompt name is required", nil
	}
	if !p.ContentType.Valid() {
		return "Invalid content type", nil
	}
	if err := prompts.Validate(p.Template); err != nil {
		return "Invalid template: " + err.Error(), nil
	}
	if p.CategoryID != "" {
		_, err := h.store.GetCategory(r.Context(), p.CategoryID)
		if errors.Is(err, store.ErrNotFound) {
			return "Category not found", nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", nil
}

func (h *Handler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.store.ListPrompts(r.Context(), q.Get("category"), models.ContentType(q.Get("contentType")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list(w, len(items), M{"templates": items})
}

func (h *Handler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetPrompt(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"template": p})
}

func (h *Handler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	var in promptInput
	if !decode(w, r, &in) {
		return
	}
	p := models.PromptTemplate{ContentType: models.TypeHack, Active: true}
	msg, err := h.applyPrompt(r, in, &p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if msg != "" {
		fail(w, http.StatusBadRequest, msg)
		return
	}
	err = h.store.CreatePrompt(r.Context(), &p)
	if errors.Is(err, store.ErrConflict) {
		fail(w, http.StatusConflict, "A prompt with this name already exists")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, M{"template": p})
}

func (h *Handler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var in promptInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.store.GetPrompt(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	msg, err := h.applyPrompt(r, in, &p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if msg != "" {
		fail(w, http.StatusBadRequest, msg)
		return
	}
	err = h.store.UpdatePrompt(r.Context(), &p)
	if errors.Is(err, store.ErrConflict) {
		fail(w, http.StatusConflict, "A prompt with this name already exists")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"template": p})
}

func (h *Handler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePrompt(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ImportDefaultPrompts(w http.ResponseWriter, r *http.Request) {
	ids, err := prompts.ImportDefaults(r.Context(), h.store)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, M{"count": len(ids), "promptIds": ids})
}

// SeedPromptsFromFile refreshes category prompts and imports any missing
// default templates.
func (h *Handler) SeedPromptsFromFile(w http.ResponseWriter, r *http.Request) {
	res, err := prompts.SeedFromFile(r.Context(), h.store)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("prompts seeded",
		zap.Int("updatedCategories", res.UpdatedCategories),
		zap.Int("newPrompts", res.NewPrompts),
		zap.Strings("errors", res.Errors))
	success(w, http.StatusOK, M{
		"updatedCategories": res.UpdatedCategories,
		"newPrompts":        res.NewPrompts,
		"errors":            res.Errors,
	})
}
