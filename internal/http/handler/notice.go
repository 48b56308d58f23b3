package handler

import (
	"net/http"
	"time"

	"github.com/KDS-OurMemory/Server-sub001/internal/auth"
	"github.com/KDS-OurMemory/Server-sub001/internal/notice"
)

type NoticeHandler struct {
	Svc *notice.Service
}

type noticeDTO struct {
	ID        uint64      `json:"id"`
	Type      notice.Type `json:"type"`
	Value     string      `json:"value"`
	Read      bool        `json:"read"`
	CreatedAt time.Time   `json:"created_at"`
}

func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	notices, err := h.Svc.List(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}

	out := make([]noticeDTO, 0, len(notices))
	for _, n := range notices {
		out = append(out, noticeDTO{
			ID:        n.ID,
			Type:      n.Type,
			Value:     n.Value,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *NoticeHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.Svc.MarkRead(r.Context(), uid, id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
