package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/portfolio-site/meetbook/services/booking-service/internal/availability"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/calendar"
)

var tracer = otel.Tracer("booking-service/handlers")

const DefaultMaxRangeDays = 62

type AvailabilityHandler struct {
	engine       *availability.Engine
	source       calendar.Source
	logger       *slog.Logger
	maxRangeDays int
	now          func() time.Time
}

func NewAvailabilityHandler(engine *availability.Engine, source calendar.Source, logger *slog.Logger, maxRangeDays int) *AvailabilityHandler {
	if maxRangeDays <= 0 {
		maxRangeDays = DefaultMaxRangeDays
	}
	return &AvailabilityHandler{
		engine:       engine,
		source:       source,
		logger:       logger,
		maxRangeDays: maxRangeDays,
		now:          time.Now,
	}
}

type blockItem struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type slotItem struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type availabilityHeader struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Timezone    string `json:"timezone"`
	Start       string `json:"start"`
	End         string `json:"end"`
	MinDuration int    `json:"min_duration"`
	Policy      string `json:"policy"`
}

type blocksResponse struct {
	availabilityHeader
	Blocks []blockItem `json:"blocks"`
}

type daysResponse struct {
	availabilityHeader
	Days map[string][]blockItem `json:"days"`
}

type slotsResponse struct {
	availabilityHeader
	Slots []slotItem `json:"slots"`
}

type constraintWindow struct {
	Days  [2]int `json:"days"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type constraintItem struct {
	Category    string            `json:"category"`
	Subcategory string            `json:"subcategory"`
	Weekday     constraintWindow  `json:"weekday"`
	Weekend     *constraintWindow `json:"weekend,omitempty"`
}

// availabilityRequest is the validated form of the shared query parameters.
type availabilityRequest struct {
	query availability.Query
	// fetchStart/fetchEnd cover every local day the generator walks.
	fetchStart time.Time
	fetchEnd   time.Time
}

type requestError struct {
	code int
	msg  string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) *requestError {
	return &requestError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func (h *AvailabilityHandler) parseRequest(r *http.Request) (availabilityRequest, *requestError) {
	q := r.URL.Query()
	loc := h.engine.Location()

	category := strings.TrimSpace(q.Get("category"))
	subcategory := strings.TrimSpace(q.Get("subcategory"))
	if category == "" || subcategory == "" {
		return availabilityRequest{}, badRequest("category and subcategory are required")
	}
	if _, ok := h.engine.Table().Find(category, subcategory); !ok {
		return availabilityRequest{}, &requestError{code: http.StatusNotFound, msg: "unknown category/subcategory"}
	}

	now := h.now().In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if raw := strings.TrimSpace(q.Get("start")); raw != "" {
		t, err := availability.ParseLocal(raw, loc)
		if err != nil {
			return availabilityRequest{}, badRequest("invalid start: %v", err)
		}
		start = t
	}
	end := start.AddDate(0, 0, 6)
	if raw := strings.TrimSpace(q.Get("end")); raw != "" {
		t, err := availability.ParseLocal(raw, loc)
		if err != nil {
			return availabilityRequest{}, badRequest("invalid end: %v", err)
		}
		end = t
	}
	if end.Before(start) {
		return availabilityRequest{}, badRequest("end must not be before start")
	}

	firstDay := midnight(start, loc)
	lastDay := midnight(end, loc)
	days := 0
	for d := firstDay; !d.After(lastDay); d = d.AddDate(0, 0, 1) {
		days++
		if days > h.maxRangeDays {
			return availabilityRequest{}, badRequest("range exceeds %d days", h.maxRangeDays)
		}
	}

	minDuration := 0
	if raw := strings.TrimSpace(q.Get("min_duration")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 24*60*h.maxRangeDays {
			return availabilityRequest{}, badRequest("invalid min_duration")
		}
		minDuration = n
	}

	policy, err := availability.ParsePolicy(q.Get("policy"))
	if err != nil {
		return availabilityRequest{}, badRequest("%v", err)
	}

	return availabilityRequest{
		query: availability.Query{
			Category:           category,
			Subcategory:        subcategory,
			Start:              start,
			End:                end,
			MinDurationMinutes: minDuration,
			GroupByDay:         queryBool(r, "group_by_day"),
			Policy:             policy,
		},
		fetchStart: firstDay,
		fetchEnd:   lastDay.AddDate(0, 0, 1),
	}, nil
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func (h *AvailabilityHandler) header(q availability.Query) availabilityHeader {
	loc := h.engine.Location()
	policy := q.Policy
	if policy == "" {
		policy = availability.PolicyMaximal
	}
	return availabilityHeader{
		Category:    strings.ToLower(q.Category),
		Subcategory: strings.ToLower(q.Subcategory),
		Timezone:    loc.String(),
		Start:       availability.FormatLocal(q.Start, loc),
		End:         availability.FormatLocal(q.End, loc),
		MinDuration: q.MinDurationMinutes,
		Policy:      string(policy),
	}
}

// compute parses the request, fetches busy time and runs the engine. On failure
// it has already written the response.
func (h *AvailabilityHandler) compute(w http.ResponseWriter, r *http.Request) (availability.Query, availability.Result, bool) {
	req, rerr := h.parseRequest(r)
	if rerr != nil {
		writeError(w, rerr.code, rerr.msg)
		return availability.Query{}, availability.Result{}, false
	}

	busy, err := h.source.Busy(r.Context(), req.fetchStart, req.fetchEnd)
	if err != nil {
		h.logger.Error("busy lookup failed", "err", err, "category", req.query.Category, "subcategory", req.query.Subcategory)
		writeError(w, http.StatusServiceUnavailable, "calendar unavailable")
		return availability.Query{}, availability.Result{}, false
	}

	_, span := tracer.Start(r.Context(), "availability.compute")
	res := h.engine.Compute(req.query, busy)
	span.SetAttributes(
		attribute.String("availability.category", req.query.Category),
		attribute.String("availability.subcategory", req.query.Subcategory),
		attribute.Int("availability.busy", len(busy)),
		attribute.Int("availability.slots", len(res.Slots)),
		attribute.Int("availability.blocks", len(res.Blocks)),
	)
	span.End()
	return req.query, res, true
}

func (h *AvailabilityHandler) blockItems(blocks []availability.AvailableBlock) []blockItem {
	loc := h.engine.Location()
	out := make([]blockItem, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, blockItem{Start: availability.FormatLocal(b.Start, loc), End: availability.FormatLocal(b.End, loc)})
	}
	return out
}

// Availability serves GET /api/v1/availability.
func (h *AvailabilityHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q, res, ok := h.compute(w, r)
	if !ok {
		return
	}

	if q.GroupByDay {
		days := make(map[string][]blockItem, len(res.Days))
		for _, d := range availability.SortedDays(res.Days) {
			days[d] = h.blockItems(res.Days[d])
		}
		writeJSON(w, http.StatusOK, daysResponse{availabilityHeader: h.header(q), Days: days})
		return
	}
	writeJSON(w, http.StatusOK, blocksResponse{availabilityHeader: h.header(q), Blocks: h.blockItems(res.Blocks)})
}

// Slots serves GET /api/v1/availability/slots with the raw 30 minute grid.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q, res, ok := h.compute(w, r)
	if !ok {
		return
	}
	loc := h.engine.Location()
	items := make([]slotItem, 0, len(res.Slots))
	for _, s := range res.Slots {
		items = append(items, slotItem{
			Start:     availability.FormatLocal(s.Start, loc),
			End:       availability.FormatLocal(s.End, loc),
			Available: s.Available,
			Reason:    s.Reason,
		})
	}
	writeJSON(w, http.StatusOK, slotsResponse{availabilityHeader: h.header(q), Slots: items})
}

// Constraints serves GET /api/v1/constraints as JSON, or YAML with ?format=yaml.
func (h *AvailabilityHandler) Constraints(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if strings.EqualFold(r.URL.Query().Get("format"), "yaml") {
		body, err := availability.MarshalTable(h.engine.Table())
		if err != nil {
			h.logger.Error("marshal constraint table failed", "err", err)
			writeError(w, http.StatusInternalServerError, "failed to build response")
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	rows := h.engine.Table().Constraints()
	items := make([]constraintItem, 0, len(rows))
	for _, c := range rows {
		item := constraintItem{Category: c.Category, Subcategory: c.Subcategory, Weekday: windowItem(c.Weekday)}
		if c.Weekend != nil {
			weekend := windowItem(*c.Weekend)
			item.Weekend = &weekend
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"timezone":    h.engine.Location().String(),
		"constraints": items,
	})
}

func windowItem(w availability.Window) constraintWindow {
	return constraintWindow{
		Days:  [2]int{int(w.Days.From), int(w.Days.To)},
		Start: w.Start.String(),
		End:   w.End.String(),
	}
}
