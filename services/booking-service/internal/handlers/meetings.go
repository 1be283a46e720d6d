package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/portfolio-site/meetbook/services/booking-service/internal/availability"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/calendar"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/model"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/storage"
)

// MeetingStore persists meetings. *storage.MeetingRepository implements it.
type MeetingStore interface {
	Create(ctx context.Context, m *model.Meeting) (string, error)
	List(ctx context.Context, status string, limit int) ([]model.Meeting, error)
	Decide(ctx context.Context, id, status, note string) (model.Meeting, error)
}

type MeetingHandler struct {
	engine *availability.Engine
	source calendar.Source
	store  MeetingStore
	logger *slog.Logger
}

func NewMeetingHandler(engine *availability.Engine, source calendar.Source, store MeetingStore, logger *slog.Logger) *MeetingHandler {
	return &MeetingHandler{engine: engine, source: source, store: store, logger: logger}
}

type createMeetingRequest struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Notes       string `json:"notes"`
}

type createMeetingResponse struct {
	MeetingID string `json:"meeting_id"`
	Status    string `json:"status"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

const maxNotesLength = 2000

// Create serves POST /api/v1/meetings. The requested interval must sit inside
// one currently available block; overlapping requests lose with 409.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req createMeetingRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	req.Category = strings.TrimSpace(req.Category)
	req.Subcategory = strings.TrimSpace(req.Subcategory)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Notes = strings.TrimSpace(req.Notes)
	if req.Category == "" || req.Subcategory == "" || req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "category, subcategory, name and email are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Notes) > maxNotesLength {
		writeError(w, http.StatusBadRequest, "notes too long")
		return
	}
	if _, ok := h.engine.Table().Find(req.Category, req.Subcategory); !ok {
		writeError(w, http.StatusNotFound, "unknown category/subcategory")
		return
	}

	loc := h.engine.Location()
	start, err := availability.ParseLocal(req.Start, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start")
		return
	}
	end, err := availability.ParseLocal(req.End, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end")
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	ctx := r.Context()
	busy, err := h.source.Busy(ctx, midnight(start, loc), midnight(end, loc).AddDate(0, 0, 1))
	if err != nil {
		h.logger.Error("busy lookup failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "calendar unavailable")
		return
	}
	q := availability.Query{Category: req.Category, Subcategory: req.Subcategory}
	if !h.engine.Contains(q, start, end, busy) {
		writeError(w, http.StatusConflict, "requested time is not available")
		return
	}

	m := &model.Meeting{
		Category:    strings.ToLower(req.Category),
		Subcategory: strings.ToLower(req.Subcategory),
		Name:        req.Name,
		Email:       req.Email,
		Notes:       req.Notes,
		StartTime:   start,
		EndTime:     end,
	}
	id, err := h.store.Create(ctx, m)
	if errors.Is(err, storage.ErrConflict) {
		writeError(w, http.StatusConflict, "requested time is not available")
		return
	}
	if err != nil {
		h.logger.Error("create meeting failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create meeting")
		return
	}

	h.logger.Info("meeting requested", "meeting_id", id, "category", m.Category, "subcategory", m.Subcategory, "start", start.UTC().Format(time.RFC3339))
	writeJSON(w, http.StatusCreated, createMeetingResponse{
		MeetingID: id,
		Status:    model.MeetingRequested,
		Start:     availability.FormatLocal(start, loc),
		End:       availability.FormatLocal(end, loc),
	})
}
