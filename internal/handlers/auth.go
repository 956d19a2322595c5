package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"windspire/internal/auth"
	"windspire/internal/models"
	"windspire/internal/store"
)

const minPasswordLen = 8

func (h *Handler) sendSession(w http.ResponseWriter, r *http.Request, status int, u models.User) {
	sess, err := h.sessions.Create(r.Context(), w, u.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, status, M{
		"user":         u,
		"token":        sess.Token,
		"refreshToken": sess.RefreshToken,
		"expiresAt":    sess.ExpiresAt,
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		fail(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		fail(w, http.StatusBadRequest, "Please provide a valid email")
		return
	}
	if len(in.Password) < minPasswordLen {
		fail(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	u := models.User{Name: in.Name, Email: in.Email, PasswordHash: hash, Active: true}
	err = h.store.CreateUser(r.Context(), &u)
	if errors.Is(err, store.ErrConflict) {
		fail(w, http.StatusBadRequest, "Email already in use")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.sendSession(w, r, http.StatusCreated, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.Email == "" || in.Password == "" {
		fail(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	u, err := h.store.GetUserByEmail(r.Context(), strings.TrimSpace(in.Email))
	if errors.Is(err, store.ErrNotFound) || (err == nil && !auth.CheckPassword(in.Password, u.PasswordHash)) {
		fail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !u.Active {
		fail(w, http.StatusUnauthorized, "Your account has been deactivated.")
		return
	}
	if err := h.store.TouchLogin(r.Context(), u.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	if u, err = h.store.GetUser(r.Context(), u.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.sendSession(w, r, http.StatusOK, u)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decode(w, r, &in) {
		return
	}
	sess, err := h.sessions.Refresh(r.Context(), w, in.RefreshToken)
	if errors.Is(err, auth.ErrInvalidRefresh) {
		fail(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	success(w, http.StatusOK, M{
		"token":        sess.Token,
		"refreshToken": sess.RefreshToken,
		"expiresAt":    sess.ExpiresAt,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	writeJSON(w, http.StatusOK, response{Status: "success", Message: "Logged out"})
}
