package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/KDS-OurMemory/Server-sub001/internal/auth"
	"github.com/KDS-OurMemory/Server-sub001/internal/lifecycle"
	"github.com/KDS-OurMemory/Server-sub001/internal/user"
)

type AuthHandler struct {
	Coord *lifecycle.Coordinator
	Users *user.Service
	JWT   *auth.JWT
}

type signUpReq struct {
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	Name         string  `json:"name"`
	Birthday     *string `json:"birthday"` // MMDD
	Solar        bool    `json:"solar"`
	BirthdayOpen bool    `json:"birthday_open"`
	PushToken    *string `json:"push_token"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || len(req.Password) < 8 {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	userID, privateRoomID, err := h.Coord.SignUp(r.Context(), lifecycle.SignUpInput{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Birthday:     req.Birthday,
		Solar:        req.Solar,
		BirthdayOpen: req.BirthdayOpen,
		PushToken:    req.PushToken,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	token, err := h.JWT.Sign(userID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":         userID,
		"private_room_id": privateRoomID,
		"token":           token,
	})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	u, err := h.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !auth.ComparePassword(u.PasswordHash, req.Password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.JWT.Sign(u.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}
