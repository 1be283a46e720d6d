package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/portfolio-site/meetbook/services/booking-service/internal/availability"
)

// ErrAllSourcesFailed is returned by Multi when no source produced an answer.
var ErrAllSourcesFailed = errors.New("all calendar sources failed")

var tracer = otel.Tracer("booking-service/calendar")

// Multi fans a query out to several sources concurrently. A failing source is
// logged and skipped unless it is marked required.
type Multi struct {
	sources  []Source
	required map[string]bool
	timeout  time.Duration
	logger   *slog.Logger
}

type MultiOption func(*Multi)

// WithSourceTimeout bounds each source call.
func WithSourceTimeout(d time.Duration) MultiOption {
	return func(m *Multi) { m.timeout = d }
}

// WithRequired makes a failure of the named source fail the whole query.
func WithRequired(names ...string) MultiOption {
	return func(m *Multi) {
		for _, n := range names {
			m.required[n] = true
		}
	}
}

func NewMulti(logger *slog.Logger, sources []Source, opts ...MultiOption) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Multi{
		sources:  sources,
		required: map[string]bool{},
		timeout:  10 * time.Second,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Sources() []Source { return m.sources }

func (m *Multi) Busy(ctx context.Context, start, end time.Time) ([]availability.BusyInterval, error) {
	if len(m.sources) == 0 {
		return nil, nil
	}
	ctx, span := tracer.Start(ctx, "calendar.busy")
	defer span.End()
	span.SetAttributes(attribute.Int("calendar.sources", len(m.sources)))

	results := make([][]availability.BusyInterval, len(m.sources))
	errs := make([]error, len(m.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range m.sources {
		g.Go(func() error {
			callCtx := gctx
			if m.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, m.timeout)
				defer cancel()
			}
			busy, err := src.Busy(callCtx, start, end)
			if err != nil {
				errs[i] = err
				if m.required[src.Name()] {
					return fmt.Errorf("source %s: %w", src.Name(), err)
				}
				return nil
			}
			results[i] = busy
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var out []availability.BusyInterval
	failed := 0
	for i, src := range m.sources {
		if errs[i] != nil {
			failed++
			m.logger.Warn("calendar source failed", "source", src.Name(), "err", errs[i])
			continue
		}
		out = append(out, results[i]...)
	}
	span.SetAttributes(attribute.Int("calendar.failed", failed), attribute.Int("calendar.intervals", len(out)))
	if failed == len(m.sources) {
		err := fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	sortByStart(out)
	return out, nil
}
