package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

const (
	TypeICS    = "ics"
	TypeCalDAV = "caldav"
	TypeGoogle = "google"
)

// SourceConfig is one entry of the sources file.
type SourceConfig struct {
	Name            string   `yaml:"name"`
	Type            string   `yaml:"type"`
	URL             string   `yaml:"url,omitempty"`
	Username        string   `yaml:"username,omitempty"`
	Password        string   `yaml:"password,omitempty"`
	PasswordEnv     string   `yaml:"password_env,omitempty"`
	Calendars       []string `yaml:"calendars,omitempty"`
	RefreshTokenEnv string   `yaml:"refresh_token_env,omitempty"`
	Cache           bool     `yaml:"cache,omitempty"`
	Required        bool     `yaml:"required,omitempty"`
}

type SourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadSources reads a YAML sources file.
func LoadSources(path string) (*SourcesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return ParseSources(data)
}

func ParseSources(data []byte) (*SourcesFile, error) {
	var f SourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	seen := map[string]bool{}
	for i := range f.Sources {
		s := &f.Sources[i]
		s.Type = strings.ToLower(strings.TrimSpace(s.Type))
		if s.Name == "" {
			return nil, fmt.Errorf("source %d: name is required", i)
		}
		if strings.EqualFold(strings.TrimSpace(s.Name), BookingsSourceName) {
			return nil, fmt.Errorf("source %s: name is reserved for stored meetings", s.Name)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("source %s: duplicate name", s.Name)
		}
		seen[s.Name] = true
		switch s.Type {
		case TypeICS, TypeCalDAV:
			if s.URL == "" {
				return nil, fmt.Errorf("source %s: url is required for %s", s.Name, s.Type)
			}
		case TypeGoogle:
			if s.RefreshTokenEnv == "" {
				return nil, fmt.Errorf("source %s: refresh_token_env is required for google", s.Name)
			}
		default:
			return nil, fmt.Errorf("source %s: unknown type %q", s.Name, s.Type)
		}
	}
	return &f, nil
}

// GetPassword resolves the password, preferring PasswordEnv.
func (s SourceConfig) GetPassword() string {
	if s.PasswordEnv != "" {
		return os.Getenv(s.PasswordEnv)
	}
	return s.Password
}

// BuildDeps carries the shared collaborators for Build.
type BuildDeps struct {
	Logger             *slog.Logger
	Location           *time.Location
	Cache              Cache
	CacheTTL           time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRate         rate.Limit
	Transport          http.RoundTripper
}

// Build turns the file into sources plus the names of those marked required.
func (f *SourcesFile) Build(ctx context.Context, deps BuildDeps) ([]Source, []string, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	var googleLimiter *rate.Limiter
	if deps.GoogleRate > 0 {
		googleLimiter = rate.NewLimiter(deps.GoogleRate, 5)
	}

	var (
		out      []Source
		required []string
	)
	for _, sc := range f.Sources {
		var src Source
		switch sc.Type {
		case TypeICS:
			var client *http.Client
			if deps.Transport != nil {
				client = &http.Client{Timeout: 30 * time.Second, Transport: deps.Transport}
			}
			src = NewICSSource(sc.Name, sc.URL, sc.Username, sc.GetPassword(), deps.Location, client)
		case TypeCalDAV:
			src = NewCalDAVSource(sc.Name, sc.URL, sc.Username, sc.GetPassword(), sc.Calendars, deps.Location, deps.Logger, deps.Transport)
		case TypeGoogle:
			token := os.Getenv(sc.RefreshTokenEnv)
			if token == "" {
				return nil, nil, fmt.Errorf("source %s: %s is empty", sc.Name, sc.RefreshTokenEnv)
			}
			if deps.GoogleClientID == "" {
				return nil, nil, fmt.Errorf("source %s: google client id not configured", sc.Name)
			}
			var opts []GoogleOption
			if googleLimiter != nil {
				opts = append(opts, WithGoogleLimiter(googleLimiter))
			}
			ts := GoogleTokenSource(ctx, deps.GoogleClientID, deps.GoogleClientSecret, token)
			src = NewGoogleSource(sc.Name, ts, sc.Calendars, opts...)
		}
		if sc.Cache && deps.Cache != nil {
			src = NewCached(src, deps.Cache, deps.CacheTTL, deps.Logger)
		}
		if sc.Required {
			required = append(required, sc.Name)
		}
		deps.Logger.Info("calendar source configured", "source", sc.Name, "type", sc.Type, "cached", sc.Cache && deps.Cache != nil)
		out = append(out, src)
	}
	return out, required, nil
}
