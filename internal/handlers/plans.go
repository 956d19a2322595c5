package handlers

import (
	"errors"
	"net/http"
	"strings"

	"windspire/internal/models"
	"windspire/internal/store"
)

type planInput struct {
	Name       *string          `json:"name"`
	Tier       *models.Tier     `json:"tier"`
	PriceCents *int64           `json:"priceCents"`
	Currency   *string          `json:"currency"`
	Interval   *models.Interval `json:"interval"`
	Features   []string         `json:"features"`
	DailyLimit *int             `json:"dailyLimit"`
	Active     *bool            `json:"active"`
}

func (in planInput) apply(p *models.SubscriptionPlan) string {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Tier != nil {
		p.Tier = *in.Tier
		if in.DailyLimit == nil {
			p.DailyLimit = p.Tier.DailyLimit()
		}
	}
	if in.PriceCents != nil {
		p.PriceCents = *in.PriceCents
	}
	if in.Currency != nil {
		p.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.Interval != nil {
		p.Interval = *in.Interval
	}
	if in.Features != nil {
		p.Features = in.Features
	}
	if in.DailyLimit != nil {
		p.DailyLimit = *in.DailyLimit
	}
	if in.Active != nil {
		p.Active = *in.Active
	}

	switch {
	case p.Name == "":
		return "Plan name is required"
	case !p.Tier.Valid():
		return "Invalid tier"
	case p.PriceCents < 0:
		return "Price cannot be negative"
	case p.Interval != models.IntervalMonth && p.Interval != models.IntervalYear:
		return "Interval must be month or year"
	case p.DailyLimit < 1:
		return "dailyLimit must be at least 1"
	}
	return ""
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.store.ListPlans(r.Context(), currentUser(r).Role.IsStaff())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list(w, len(plans), M{"plans": plans})
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetPlan(r.Context(), r.PathValue("id"))
	if err == nil && !p.Active && !currentUser(r).Role.IsStaff() {
		err = store.ErrNotFound
	}
	if errors.Is(err, store.ErrNotFound) {
		fail(w, http.StatusNotFound, "Plan not found")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"plan": p})
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var in planInput
	if !decode(w, r, &in) {
		return
	}
	p := models.SubscriptionPlan{Currency: "USD", Interval: models.IntervalMonth, Features: []string{}, Active: true}
	if msg := in.apply(&p); msg != "" {
		fail(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.store.CreatePlan(r.Context(), &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusCreated, M{"plan": p})
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var in planInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.store.GetPlan(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if msg := in.apply(&p); msg != "" {
		fail(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.store.UpdatePlan(r.Context(), p); err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"plan": p})
}

func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePlan(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
