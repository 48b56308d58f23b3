package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/KDS-OurMemory/Server-sub001/internal/auth"
	"github.com/KDS-OurMemory/Server-sub001/internal/friend"
)

type FriendHandler struct {
	Svc *friend.Service
}

func pathID(r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func (h *FriendHandler) Request(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	target, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	f, err := h.Svc.Request(r.Context(), uid, target)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"friend_id": f.FriendID,
		"status":    f.Status,
	})
}

func (h *FriendHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	target, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.Svc.Cancel(r.Context(), uid, target); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	requester, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.Svc.Accept(r.Context(), uid, requester); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FriendHandler) ReAdd(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	target, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.Svc.ReAdd(r.Context(), uid, target); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type patchFriendReq struct {
	Status string `json:"status"`
}

func (h *FriendHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	target, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req patchFriendReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	st := friend.Status(strings.ToUpper(strings.TrimSpace(req.Status)))

	if err := h.Svc.PatchStatus(r.Context(), uid, target, st); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FriendHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	target, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.Svc.Delete(r.Context(), uid, target); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type friendDTO struct {
	ID     uint64        `json:"id"`
	Name   string        `json:"name"`
	Status friend.Status `json:"status"`
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	infos, err := h.Svc.Friends(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}

	out := make([]friendDTO, 0, len(infos))
	for _, i := range infos {
		out = append(out, friendDTO{ID: i.User.ID, Name: i.User.Name, Status: i.Status})
	}
	writeJSON(w, http.StatusOK, out)
}

type relationDTO struct {
	ID     uint64         `json:"id"`
	Name   string         `json:"name"`
	Status *friend.Status `json:"status"`
}

func (h *FriendHandler) FindUsers(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var f friend.Filter
	if v := strings.TrimSpace(r.URL.Query().Get("user_id")); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid user_id", http.StatusBadRequest)
			return
		}
		f.UserID = id
	}
	f.Name = strings.TrimSpace(r.URL.Query().Get("name"))

	rels, err := h.Svc.FindUsers(r.Context(), uid, f)
	if err != nil {
		writeErr(w, err)
		return
	}

	out := make([]relationDTO, 0, len(rels))
	for _, rel := range rels {
		out = append(out, relationDTO{ID: rel.User.ID, Name: rel.User.Name, Status: rel.Status})
	}
	writeJSON(w, http.StatusOK, out)
}
