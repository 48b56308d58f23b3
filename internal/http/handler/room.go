package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/KDS-OurMemory/Server-sub001/internal/auth"
	"github.com/KDS-OurMemory/Server-sub001/internal/lifecycle"
	"github.com/KDS-OurMemory/Server-sub001/internal/room"
)

type RoomHandler struct {
	Svc   *room.Service
	Coord *lifecycle.Coordinator
}

type createRoomReq struct {
	Name    string   `json:"name"`
	Opened  bool     `json:"opened"`
	Members []uint64 `json:"members"`
}

type roomDTO struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	OwnerID uint64 `json:"owner_id"`
	Opened  bool   `json:"opened"`
}

func toRoomDTO(r *room.Room) roomDTO {
	return roomDTO{ID: r.ID, Name: r.Name, OwnerID: r.OwnerID, Opened: r.Opened}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}

	created, err := h.Svc.Create(r.Context(), uid, room.CreateInput{
		Name:    req.Name,
		Opened:  req.Opened,
		Members: req.Members,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomDTO(created))
}

func (h *RoomHandler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	found, members, err := h.Svc.Find(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}

	memberDTOs := make([]userDTO, 0, len(members))
	for i := range members {
		memberDTOs = append(memberDTOs, toUserDTO(&members[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room":    toRoomDTO(found),
		"members": memberDTOs,
	})
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	rooms, err := h.Svc.FindAll(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}

	out := make([]roomDTO, 0, len(rooms))
	for i := range rooms {
		out = append(out, toRoomDTO(&rooms[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateRoomReq struct {
	Name   *string `json:"name"`
	Opened *bool   `json:"opened"`
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	updated, err := h.Svc.Update(r.Context(), id, room.UpdateInput{Name: req.Name, Opened: req.Opened})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTO(updated))
}

type recommendOwnerReq struct {
	CandidateID uint64 `json:"candidate_id"`
}

func (h *RoomHandler) RecommendOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req recommendOwnerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.CandidateID == 0 {
		http.Error(w, "candidate_id required", http.StatusBadRequest)
		return
	}

	if err := h.Svc.RecommendOwner(r.Context(), id, req.CandidateID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.Coord.DeleteRoom(r.Context(), id, uid); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type exitRoomReq struct {
	CandidateID uint64 `json:"candidate_id"`
}

func (h *RoomHandler) Exit(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req exitRoomReq
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
	}

	if err := h.Coord.ExitRoom(r.Context(), id, uid, req.CandidateID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
