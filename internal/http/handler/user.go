package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/KDS-OurMemory/Server-sub001/internal/auth"
	"github.com/KDS-OurMemory/Server-sub001/internal/image"
	"github.com/KDS-OurMemory/Server-sub001/internal/lifecycle"
	"github.com/KDS-OurMemory/Server-sub001/internal/user"
)

type UserHandler struct {
	Users  *user.Service
	Coord  *lifecycle.Coordinator
	Images image.Store
}

type userDTO struct {
	ID            uint64  `json:"id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	Birthday      *string `json:"birthday"`
	Solar         bool    `json:"solar"`
	BirthdayOpen  bool    `json:"birthday_open"`
	Push          bool    `json:"push"`
	PrivateRoomID *uint64 `json:"private_room_id"`
}

func toUserDTO(u *user.User) userDTO {
	return userDTO{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Birthday:      u.Birthday,
		Solar:         u.Solar,
		BirthdayOpen:  u.BirthdayOpen,
		Push:          u.Push,
		PrivateRoomID: u.PrivateRoomID,
	}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	u, err := h.Users.Get(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

type updateUserReq struct {
	Name         *string `json:"name"`
	Birthday     *string `json:"birthday"`
	Solar        *bool   `json:"solar"`
	BirthdayOpen *bool   `json:"birthday_open"`
	Push         *bool   `json:"push"`
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req updateUserReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	u, err := h.Users.UpdateProfile(r.Context(), uid, user.UpdateInput{
		Name:         req.Name,
		Birthday:     req.Birthday,
		Solar:        req.Solar,
		BirthdayOpen: req.BirthdayOpen,
		Push:         req.Push,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

type pushTokenReq struct {
	Token string `json:"token"`
}

func (h *UserHandler) SetPushToken(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req pushTokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		http.Error(w, "token required", http.StatusBadRequest)
		return
	}

	if err := h.Users.SetPushToken(r.Context(), uid, req.Token); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	key := fmt.Sprintf("profile-%d-%d", uid, time.Now().UnixNano())
	if err := h.Images.Upload(r.Context(), key, r.Body); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.Users.SetProfileImage(r.Context(), uid, &key); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"key": key})
}

func (h *UserHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	u, err := h.Users.Get(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	if u.ProfileImageKey != nil {
		_ = h.Images.Delete(r.Context(), *u.ProfileImageKey)
	}
	if err := h.Users.SetProfileImage(r.Context(), uid, nil); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete runs the full departure cascade.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	if err := h.Coord.DeleteUser(r.Context(), uid); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
