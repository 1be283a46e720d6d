package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/portfolio-site/meetbook/services/booking-service/internal/availability"
)

const (
	googleCalendarScope   = "https://www.googleapis.com/auth/calendar.readonly"
	googleFreeBusyURL     = "https://www.googleapis.com/calendar/v3/freeBusy"
	defaultGoogleCalendar = "primary"
)

// GoogleTokenSource builds a refreshing token source from a stored refresh token.
func GoogleTokenSource(ctx context.Context, clientID, clientSecret, refreshToken string) oauth2.TokenSource {
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{googleCalendarScope},
	}
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}

// GoogleSource asks the Google Calendar free/busy endpoint for busy time.
// Calls share limiter so a burst of availability requests cannot exhaust quota.
type GoogleSource struct {
	name      string
	calendars []string
	endpoint  string
	limiter   *rate.Limiter
	client    *http.Client
}

type GoogleOption func(*GoogleSource)

// WithGoogleEndpoint overrides the free/busy URL.
func WithGoogleEndpoint(url string) GoogleOption {
	return func(s *GoogleSource) { s.endpoint = url }
}

func WithGoogleLimiter(l *rate.Limiter) GoogleOption {
	return func(s *GoogleSource) { s.limiter = l }
}

func NewGoogleSource(name string, ts oauth2.TokenSource, calendars []string, opts ...GoogleOption) *GoogleSource {
	if len(calendars) == 0 {
		calendars = []string{defaultGoogleCalendar}
	}
	s := &GoogleSource{
		name:      name,
		calendars: calendars,
		endpoint:  googleFreeBusyURL,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 5),
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &oauth2.Transport{
				Source: oauth2.ReuseTokenSource(nil, ts),
				Base:   otelhttp.NewTransport(http.DefaultTransport),
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GoogleSource) Name() string { return s.name }

type freeBusyItem struct {
	ID string `json:"id"`
}

type freeBusyRequest struct {
	TimeMin string         `json:"timeMin"`
	TimeMax string         `json:"timeMax"`
	Items   []freeBusyItem `json:"items"`
}

type freeBusyPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy   []freeBusyPeriod `json:"busy"`
		Errors []struct {
			Domain string `json:"domain"`
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"calendars"`
}

func (s *GoogleSource) Busy(ctx context.Context, start, end time.Time) ([]availability.BusyInterval, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("google rate limit: %w", err)
	}

	body := freeBusyRequest{
		TimeMin: start.UTC().Format(time.RFC3339),
		TimeMax: end.UTC().Format(time.RFC3339),
	}
	for _, id := range s.calendars {
		body.Items = append(body.Items, freeBusyItem{ID: id})
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google freebusy %s: %w", s.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google freebusy %s: status %d", s.name, resp.StatusCode)
	}

	var parsed freeBusyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode freebusy: %w", err)
	}

	var out []availability.BusyInterval
	for _, id := range s.calendars {
		cal, ok := parsed.Calendars[id]
		if !ok {
			continue
		}
		if len(cal.Errors) > 0 {
			reasons := make([]string, 0, len(cal.Errors))
			for _, e := range cal.Errors {
				reasons = append(reasons, e.Reason)
			}
			return nil, fmt.Errorf("google calendar %s: %s", id, strings.Join(reasons, ","))
		}
		for _, p := range cal.Busy {
			out = append(out, availability.BusyInterval{
				Start:  p.Start,
				End:    p.End,
				Busy:   true,
				Source: s.name + "/" + id,
			})
		}
	}
	sortByStart(out)
	return out, nil
}
