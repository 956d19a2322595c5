package handlers

import (
	"math"
	"net/http"
	"strings"

	"windspire/internal/content"
	"windspire/internal/models"
)

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r, 20)
	users, total, err := h.store.ListUsers(r.Context(), limit, (page-1)*limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	n := len(users)
	writeJSON(w, http.StatusOK, response{
		Status:  "success",
		Results: &n,
		Pagination: &content.Pagination{
			Total: total,
			Page:  page,
			Pages: int(math.Ceil(float64(total) / float64(limit))),
			Limit: limit,
		},
		Data: M{"users": users},
	})
}

func (h *Handler) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.store.Progress(r.Context(), u.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	u.Progress = &p
	if u.DeviceTokens, err = h.store.Devices(r.Context(), u.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"user": u})
}

func (h *Handler) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name         *string      `json:"name"`
		Role         *models.Role `json:"role"`
		Active       *bool        `json:"active"`
		Verified     *bool        `json:"verified"`
		Subscription *struct {
			Tier   *models.Tier               `json:"tier"`
			Status *models.SubscriptionStatus `json:"status"`
		} `json:"subscription"`
	}
	if !decode(w, r, &in) {
		return
	}
	u, err := h.store.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			fail(w, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			fail(w, http.StatusBadRequest, "Invalid role")
			return
		}
		u.Role = *in.Role
	}
	if in.Active != nil {
		u.Active = *in.Active
	}
	if in.Verified != nil {
		u.Verified = *in.Verified
	}
	if s := in.Subscription; s != nil {
		if s.Tier != nil {
			if !s.Tier.Valid() {
				fail(w, http.StatusBadRequest, "Invalid subscription tier")
				return
			}
			u.Subscription.Tier = *s.Tier
		}
		if s.Status != nil {
			if !s.Status.Valid() {
				fail(w, http.StatusBadRequest, "Invalid subscription status")
				return
			}
			u.Subscription.Status = *s.Status
		}
	}
	if err := h.store.UpdateUser(r.Context(), u); err != nil {
		h.writeError(w, r, err)
		return
	}
	if !u.Active {
		if err := h.sessions.DestroyAll(r.Context(), u.ID); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	success(w, http.StatusOK, M{"user": u})
}

func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == currentUser(r).ID {
		fail(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ContentAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.ContentAnalytics(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"analytics": a})
}

func (h *Handler) UserAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.UserAnalytics(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"analytics": a})
}
