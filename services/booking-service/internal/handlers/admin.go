package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/portfolio-site/meetbook/libs/auth"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/availability"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/model"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/storage"
)

type AdminConfig struct {
	// PasswordHash is the bcrypt hash of the single admin password. Empty disables login.
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

type AdminHandler struct {
	store  MeetingStore
	loc    *time.Location
	logger *slog.Logger
	cfg    AdminConfig
	now    func() time.Time
}

func NewAdminHandler(store MeetingStore, loc *time.Location, logger *slog.Logger, cfg AdminConfig) *AdminHandler {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AdminHandler{store: store, loc: loc, logger: logger, cfg: cfg, now: time.Now}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresAt string `json:"expires_at"`
}

type meetingItem struct {
	MeetingID    string `json:"meeting_id"`
	Category     string `json:"category"`
	Subcategory  string `json:"subcategory"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Notes        string `json:"notes,omitempty"`
	Start        string `json:"start"`
	End          string `json:"end"`
	Status       string `json:"status"`
	DecidedAt    string `json:"decided_at,omitempty"`
	DecisionNote string `json:"decision_note,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type decisionRequest struct {
	MeetingID string `json:"meeting_id"`
	Status    string `json:"status"`
	Note      string `json:"note"`
}

// Login serves POST /api/v1/admin/login.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if h.cfg.PasswordHash == "" || h.cfg.JWTSecret == "" {
		writeError(w, http.StatusServiceUnavailable, "admin login disabled")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "password required")
		return
	}
	if err := auth.CheckPassword(h.cfg.PasswordHash, req.Password); err != nil {
		h.logger.Warn("admin login rejected", "client", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expires, err := auth.SignHS256("admin", auth.RoleAdmin, h.cfg.JWTSecret, h.cfg.TokenTTL, h.now())
	if err != nil {
		h.logger.Error("sign admin token failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expires.UTC().Format(time.RFC3339),
	})
}

// RequireAdmin rejects requests without a valid admin bearer token.
func (h *AdminHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || len(strings.TrimSpace(header)) <= len("Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}
		claims, err := auth.ParseAndVerifyHS256(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), h.cfg.JWTSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if claims.Role != auth.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// List serves GET /api/v1/admin/meetings?status=&limit=.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
	if status != "" && status != model.MeetingRequested && !model.ValidDecision(status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	meetings, err := h.store.List(r.Context(), status, queryLimit(r, 50, 200))
	if err != nil {
		h.logger.Error("list meetings failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list meetings")
		return
	}
	items := make([]meetingItem, 0, len(meetings))
	for _, m := range meetings {
		items = append(items, h.item(m))
	}
	writeJSON(w, http.StatusOK, items)
}

// Decide serves POST /api/v1/admin/meetings/decision.
func (h *AdminHandler) Decide(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.MeetingID = strings.TrimSpace(req.MeetingID)
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if req.MeetingID == "" || !model.ValidDecision(req.Status) {
		writeError(w, http.StatusBadRequest, "meeting_id and status (confirmed|declined) are required")
		return
	}

	m, err := h.store.Decide(r.Context(), req.MeetingID, req.Status, strings.TrimSpace(req.Note))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	case errors.Is(err, storage.ErrAlreadyDecided):
		writeError(w, http.StatusConflict, "meeting already decided")
		return
	case err != nil:
		h.logger.Error("decide meeting failed", "err", err, "meeting_id", req.MeetingID)
		writeError(w, http.StatusInternalServerError, "failed to update meeting")
		return
	}
	h.logger.Info("meeting decided", "meeting_id", m.ID, "status", m.Status)
	writeJSON(w, http.StatusOK, h.item(m))
}

func (h *AdminHandler) item(m model.Meeting) meetingItem {
	item := meetingItem{
		MeetingID:    m.ID,
		Category:     m.Category,
		Subcategory:  m.Subcategory,
		Name:         m.Name,
		Email:        m.Email,
		Notes:        m.Notes,
		Start:        availability.FormatLocal(m.StartTime, h.loc),
		End:          availability.FormatLocal(m.EndTime, h.loc),
		Status:       m.Status,
		DecisionNote: m.DecisionNote,
		CreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.DecidedAt != nil {
		item.DecidedAt = m.DecidedAt.UTC().Format(time.RFC3339)
	}
	return item
}
