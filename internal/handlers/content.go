package handlers

import (
	"net/http"
	"strconv"

	"windspire/internal/content"
	"windspire/internal/models"
)

func (h *Handler) ListContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := pageParams(r, 20)
	res, err := h.content.ListContent(r.Context(), currentUser(r), content.ListQuery{
		Status:      models.Status(q.Get("status")),
		CategoryID:  q.Get("category"),
		ContentType: models.ContentType(q.Get("contentType")),
		Difficulty:  models.Difficulty(q.Get("difficulty")),
		Pool:        models.Pool(q.Get("pool")),
		Search:      q.Get("search"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	n := len(res.Items)
	writeJSON(w, http.StatusOK, response{
		Status:     "success",
		Results:    &n,
		Pagination: &res.Pagination,
		Data:       M{"content": res.Items},
	})
}

func (h *Handler) DailyContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.content.DailyContent(r.Context(), currentUser(r),
		q.Get("category"), models.ContentType(q.Get("contentType")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list(w, len(items), M{"content": items})
}

func (h *Handler) ContentByPool(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.content.ContentByPool(r.Context(), models.Pool(q.Get("pool")),
		q.Get("category"), models.ContentType(q.Get("contentType")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list(w, len(items), M{"content": items})
}

func (h *Handler) SavedContent(w http.ResponseWriter, r *http.Request) {
	items, err := h.content.Saved(r.Context(), currentUser(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list(w, len(items), M{"content": items})
}

func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	c, err := h.content.GetContent(r.Context(), currentUser(r), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"content": c})
}

func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var in content.Changes
	if !decode(w, r, &in) {
		return
	}
	c, err := h.content.Create(r.Context(), currentUser(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, M{"content": c})
}

func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var in content.Changes
	if !decode(w, r, &in) {
		return
	}
	c, err := h.content.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"content": c})
}

func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	if err := h.content.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "success", Message: "Content deleted"})
}

func (h *Handler) RateContent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Rating string `json:"rating"`
	}
	if !decode(w, r, &in) {
		return
	}
	res, err := h.content.Rate(r.Context(), currentUser(r), r.PathValue("id"), in.Rating)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, res)
}

func (h *Handler) SaveContent(w http.ResponseWriter, r *http.Request) {
	if err := h.content.Save(r.Context(), currentUser(r), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "success", Message: "Content saved successfully"})
}

func (h *Handler) UnsaveContent(w http.ResponseWriter, r *http.Request) {
	if err := h.content.Unsave(r.Context(), currentUser(r), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "success", Message: "Content removed from saved items"})
}

func (h *Handler) ShareContent(w http.ResponseWriter, r *http.Request) {
	n, err := h.content.Share(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"shares": n})
}

func (h *Handler) RewriteContent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Model string `json:"model"`
	}
	if !decode(w, r, &in) {
		return
	}
	c, err := h.content.Rewrite(r.Context(), r.PathValue("id"), in.Model)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"content": c})
}

func (h *Handler) RecycleContent(w http.ResponseWriter, r *http.Request) {
	c, err := h.content.Recycle(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"content": c})
}

func (h *Handler) GenerateMultiple(w http.ResponseWriter, r *http.Request) {
	var in content.GenerateRequest
	if !decode(w, r, &in) {
		return
	}
	items, err := h.content.GenerateMultiple(r.Context(), currentUser(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	n := len(items)
	writeJSON(w, http.StatusCreated, response{Status: "success", Results: &n, Data: M{"content": items}})
}

const defaultGenerateCount = 10

func (h *Handler) GenerateForCategories(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CategoryIDs []string `json:"categoryIds"`
		Count       *int     `json:"count"`
	}
	if !decode(w, r, &in) {
		return
	}
	count := defaultGenerateCount
	if in.Count != nil {
		count = *in.Count
	}
	res, err := h.content.GenerateForCategories(r.Context(), currentUser(r), in.CategoryIDs, count)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	n := len(res.Content)
	writeJSON(w, http.StatusCreated, response{
		Status:           "success",
		Results:          &n,
		FailedCategories: res.Failed,
		Data:             M{"content": res.Content},
	})
}

func (h *Handler) PendingContent(w http.ResponseWriter, r *http.Request) {
	items, err := h.content.Pending(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list(w, len(items), M{"content": items})
}

func (h *Handler) ModerateContent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Action          string `json:"action"`
		ModerationNotes string `json:"moderationNotes"`
		Notes           string `json:"notes"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.ModerationNotes != "" {
		in.Notes = in.ModerationNotes
	}
	c, err := h.content.Moderate(r.Context(), currentUser(r), r.PathValue("id"), in.Action, in.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"content": c})
}

func (h *Handler) Duplicates(w http.ResponseWriter, r *http.Request) {
	groups, err := h.content.Duplicates(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list(w, len(groups), M{"groups": groups})
}

type idsRequest struct {
	IDs   []string `json:"ids"`
	Model string   `json:"model"`
}

func (h *Handler) RewriteDuplicates(w http.ResponseWriter, r *http.Request) {
	var in idsRequest
	if !decode(w, r, &in) {
		return
	}
	res, err := h.content.RewriteDuplicates(r.Context(), in.IDs, in.Model)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: "Rewrote " + strconv.Itoa(succeeded(res)) + " of " + strconv.Itoa(len(res)) + " items",
		Data:    M{"results": res},
	})
}

func (h *Handler) DeleteManyContent(w http.ResponseWriter, r *http.Request) {
	var in idsRequest
	if !decode(w, r, &in) {
		return
	}
	res, err := h.content.DeleteMany(r.Context(), in.IDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Message: "Deleted " + strconv.Itoa(succeeded(res)) + " of " + strconv.Itoa(len(res)) + " items",
		Data:    M{"results": res},
	})
}

func succeeded(res []content.ItemResult) int {
	n := 0
	for _, r := range res {
		if r.Success {
			n++
		}
	}
	return n
}
