package handlers

import (
	"net/http"
	"strings"

	"windspire/internal/models"
)

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	devices, err := h.store.Devices(r.Context(), u.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	u.DeviceTokens = devices
	success(w, http.StatusOK, M{"user": u})
}

// UpdateProfile changes name and avatar only. Email, role and
// subscription have their own flows.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name   *string `json:"name"`
		Avatar *string `json:"avatar"`
	}
	if !decode(w, r, &in) {
		return
	}
	u := currentUser(r)
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			fail(w, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		u.Name = name
	}
	if in.Avatar != nil {
		u.Avatar = strings.TrimSpace(*in.Avatar)
	}
	if err := h.store.UpdateUser(r.Context(), u); err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"user": u})
}

func validTheme(t string) bool {
	return t == "light" || t == "dark" || t == "system"
}

func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Theme         *string `json:"theme"`
		Notifications *struct {
			Email *bool `json:"email"`
			Push  *bool `json:"push"`
		} `json:"notifications"`
		ContentPreferences *struct {
			Categories []string           `json:"categories"`
			Difficulty *models.Difficulty `json:"difficulty"`
		} `json:"contentPreferences"`
	}
	if !decode(w, r, &in) {
		return
	}
	u := currentUser(r)
	p := u.Preferences
	if in.Theme != nil {
		if !validTheme(*in.Theme) {
			fail(w, http.StatusBadRequest, "Theme must be light, dark or system")
			return
		}
		p.Theme = *in.Theme
	}
	if n := in.Notifications; n != nil {
		if n.Email != nil {
			p.Notifications.Email = *n.Email
		}
		if n.Push != nil {
			p.Notifications.Push = *n.Push
		}
	}
	if cp := in.ContentPreferences; cp != nil {
		if cp.Categories != nil {
			p.ContentPreferences.Categories = cp.Categories
		}
		if cp.Difficulty != nil {
			if *cp.Difficulty != "" && !cp.Difficulty.Valid() {
				fail(w, http.StatusBadRequest, "Invalid difficulty")
				return
			}
			p.ContentPreferences.Difficulty = *cp.Difficulty
		}
	}
	if err := h.store.UpdatePreferences(r.Context(), u.ID, p); err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"preferences": p})
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	p, err := h.store.Progress(r.Context(), u.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"stats": u.Stats, "progress": p})
}

func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var in models.DeviceToken
	if !decode(w, r, &in) {
		return
	}
	in.Token = strings.TrimSpace(in.Token)
	if in.Token == "" || in.Platform == "" {
		fail(w, http.StatusBadRequest, "Token and platform are required")
		return
	}
	if !in.Platform.Valid() {
		fail(w, http.StatusBadRequest, "Platform must be ios, android or web")
		return
	}
	u := currentUser(r)
	if err := h.store.UpsertDevice(r.Context(), u.ID, in); err != nil {
		h.writeError(w, r, err)
		return
	}
	devices, err := h.store.Devices(r.Context(), u.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{"deviceTokens": devices})
}

func (h *Handler) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.Token == "" {
		fail(w, http.StatusBadRequest, "Token is required")
		return
	}
	if err := h.store.RemoveDevice(r.Context(), currentUser(r).ID, in.Token); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "success", Message: "Device unregistered"})
}

// Deactivate disables the caller's account and ends all its sessions.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	u.Active = false
	if err := h.store.UpdateUser(r.Context(), u); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.sessions.DestroyAll(r.Context(), u.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
