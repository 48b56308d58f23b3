package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KDS-OurMemory/Server-sub001/internal/auth"
	"github.com/KDS-OurMemory/Server-sub001/internal/memory"
)

type MemoryHandler struct {
	Svc *memory.Service
}

type memoryDTO struct {
	ID          uint64     `json:"id"`
	WriterID    uint64     `json:"writer_id"`
	Name        string     `json:"name"`
	Contents    string     `json:"contents"`
	Place       string     `json:"place"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	FirstAlarm  *time.Time `json:"first_alarm"`
	SecondAlarm *time.Time `json:"second_alarm"`
	BgColor     string     `json:"bg_color"`
	Tags        []string   `json:"tags"`
}

func toMemoryDTO(m *memory.Memory) memoryDTO {
	return memoryDTO{
		ID:          m.ID,
		WriterID:    m.WriterID,
		Name:        m.Name,
		Contents:    m.Contents,
		Place:       m.Place,
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		FirstAlarm:  m.FirstAlarm,
		SecondAlarm: m.SecondAlarm,
		BgColor:     m.BgColor,
		Tags:        m.Tags,
	}
}

type createMemoryReq struct {
	Name         string     `json:"name"`
	Contents     string     `json:"contents"`
	Place        string     `json:"place"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      time.Time  `json:"end_date"`
	FirstAlarm   *time.Time `json:"first_alarm"`
	SecondAlarm  *time.Time `json:"second_alarm"`
	BgColor      string     `json:"bg_color"`
	TargetRoomID uint64     `json:"room_id"`
}

func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createMemoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if req.EndDate.Before(req.StartDate) {
		http.Error(w, "end_date before start_date", http.StatusBadRequest)
		return
	}

	m, addedRoomID, err := h.Svc.Create(r.Context(), uid, memory.CreateInput{
		Name:         req.Name,
		Contents:     req.Contents,
		Place:        req.Place,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		FirstAlarm:   req.FirstAlarm,
		SecondAlarm:  req.SecondAlarm,
		BgColor:      req.BgColor,
		TargetRoomID: req.TargetRoomID,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"memory":        toMemoryDTO(m),
		"added_room_id": addedRoomID,
	})
}

type attendanceDTO struct {
	UserID uint64                  `json:"user_id"`
	Status memory.AttendanceStatus `json:"status"`
}

func (h *MemoryHandler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var roomID uint64
	if v := strings.TrimSpace(r.URL.Query().Get("room_id")); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid room_id", http.StatusBadRequest)
			return
		}
		roomID = n
	}

	m, attends, err := h.Svc.Find(r.Context(), id, roomID)
	if err != nil {
		writeErr(w, err)
		return
	}

	attendDTOs := make([]attendanceDTO, 0, len(attends))
	for _, a := range attends {
		attendDTOs = append(attendDTOs, attendanceDTO{UserID: a.UserID, Status: a.Status})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"memory":     toMemoryDTO(m),
		"attendance": attendDTOs,
	})
}

func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	memories, err := h.Svc.FindAll(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}

	out := make([]memoryDTO, 0, len(memories))
	for i := range memories {
		out = append(out, toMemoryDTO(&memories[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateMemoryReq struct {
	Name        *string    `json:"name"`
	Contents    *string    `json:"contents"`
	Place       *string    `json:"place"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	FirstAlarm  *time.Time `json:"first_alarm"`
	SecondAlarm *time.Time `json:"second_alarm"`
	BgColor     *string    `json:"bg_color"`
}

func (h *MemoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateMemoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	m, err := h.Svc.Update(r.Context(), id, uid, memory.UpdateInput{
		Name:        req.Name,
		Contents:    req.Contents,
		Place:       req.Place,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		FirstAlarm:  req.FirstAlarm,
		SecondAlarm: req.SecondAlarm,
		BgColor:     req.BgColor,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemoryDTO(m))
}

type shareMemoryReq struct {
	Mode    string   `json:"mode"` // USERS / USER_GROUP / ROOMS
	Targets []uint64 `json:"targets"`
}

func (h *MemoryHandler) Share(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req shareMemoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if len(req.Targets) == 0 {
		http.Error(w, "targets required", http.StatusBadRequest)
		return
	}
	mode := memory.ShareMode(strings.ToUpper(strings.TrimSpace(req.Mode)))

	if err := h.Svc.Share(r.Context(), id, uid, mode, req.Targets); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type attendanceReq struct {
	Status string `json:"status"` // ATTEND / ABSENCE
}

func (h *MemoryHandler) SetAttendance(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req attendanceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	st := memory.AttendanceStatus(strings.ToUpper(strings.TrimSpace(req.Status)))

	if err := h.Svc.SetAttendance(r.Context(), id, uid, st); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	roomID, err := strconv.ParseUint(strings.TrimSpace(r.URL.Query().Get("room_id")), 10, 64)
	if err != nil {
		http.Error(w, "room_id required", http.StatusBadRequest)
		return
	}

	if err := h.Svc.Delete(r.Context(), id, uid, roomID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
