package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"windspire/internal/models"
	"windspire/internal/store"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

type categoryInput struct {
	Name                 *string             `json:"name"`
	Slug                 *string             `json:"slug"`
	Description          *string             `json:"description"`
	Icon                 *string             `json:"icon"`
	Color                *string             `json:"color"`
	Active               *bool               `json:"active"`
	ContentType          *models.ContentType `json:"contentType"`
	DefaultNumToGenerate *int                `json:"defaultNumToGenerate"`
	Prompt               *string             `json:"prompt"`
	Order                *int                `json:"order"`
}

// apply copies the set fields onto c and returns a client message when
// the result is invalid.
func (in categoryInput) apply(c *models.Category) string {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		c.Slug = slugify(*in.Slug)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if in.Color != nil {
		c.Color = *in.Color
	}
	if in.Active != nil {
		c.Active = *in.Active
	}
	if in.ContentType != nil {
		c.ContentType = *in.ContentType
	}
	if in.DefaultNumToGenerate != nil {
		c.DefaultNumToGenerate = *in.DefaultNumToGenerate
	}
	if in.Prompt != nil {
		c.Prompt = *in.Prompt
	}
	if in.Order != nil {
		c.Order = *in.Order
	}

	if c.Name == "" {
		return "Category name is required"
	}
	if c.Slug == "" {
		c.Slug = slugify(c.Name)
	}
	if !c.ContentType.Valid() {
		return "Invalid content type"
	}
	if c.DefaultNumToGenerate < 1 {
		return "defaultNumToGenerate must be at least 1"
	}
	return ""
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories(r.Context(), currentUser(r).Role.IsStaff())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list(w, len(cats), M{"categories": cats})
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetCategory(r.Context(), r.PathValue("id"))
	if err == nil && !c.Active && !currentUser(r).Role.IsStaff() {
		err = store.ErrNotFound
	}
	if errors.Is(err, store.ErrNotFound) {
		fail(w, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"category": c})
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryInput
	if !decode(w, r, &in) {
		return
	}
	c := models.Category{Active: true, ContentType: models.TypeHack, DefaultNumToGenerate: 5}
	if msg := in.apply(&c); msg != "" {
		fail(w, http.StatusBadRequest, msg)
		return
	}
	err := h.store.CreateCategory(r.Context(), &c)
	if errors.Is(err, store.ErrConflict) {
		fail(w, http.StatusConflict, "A category with this name or slug already exists")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, M{"category": c})
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.store.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if msg := in.apply(&c); msg != "" {
		fail(w, http.StatusBadRequest, msg)
		return
	}
	err = h.store.UpdateCategory(r.Context(), c)
	if errors.Is(err, store.ErrConflict) {
		fail(w, http.StatusConflict, "A category with this name or slug already exists")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"category": c})
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteCategory(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrInUse) {
		fail(w, http.StatusConflict, "Category still has content. Move or delete it first.")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ActivateAllCategories(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.ActivateAllCategories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"activatedCount": n})
}

func (h *Handler) CategoryPoolStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.CategoryPoolStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list(w, len(stats), M{"categories": stats})
}
