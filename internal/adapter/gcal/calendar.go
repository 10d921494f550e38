// Package gcal reads events from Google Calendar with a service account.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
)

// Config for the calendar source.
type Config struct {
	// Credentials is a service-account key, either the JSON itself or a path
	// to a file holding it.
	Credentials string
	CalendarID  string
	Timeout     time.Duration

	// Endpoint and HTTPClient override the API base URL and transport. When
	// HTTPClient is set, Credentials are not used.
	Endpoint   string
	HTTPClient *http.Client
}

// Source implements domain.CalendarSource.
type Source struct {
	service    *calendar.Service
	calendarID string
	timeout    time.Duration
	logger     *slog.Logger
}

// New builds a calendar client. Credentials are read and parsed here so a
// bad key fails at start-up rather than at the first run.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Source, error) {
	opts := []option.ClientOption{}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	} else {
		key, err := readCredentials(cfg.Credentials)
		if err != nil {
			return nil, err
		}
		jwt, err := google.JWTConfigFromJSON(key, calendar.CalendarReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account credentials: %w", err)
		}
		opts = append(opts, option.WithHTTPClient(jwt.Client(ctx)))
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	id := cfg.CalendarID
	if id == "" {
		id = "primary"
	}
	return &Source{service: svc, calendarID: id, timeout: cfg.Timeout, logger: logger}, nil
}

// ListEvents returns single occurrences overlapping [from, to), ordered by
// start time.
func (s *Source) ListEvents(ctx context.Context, from, to time.Time) ([]domain.EventEntry, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	call := s.service.Events.List(s.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	var out []domain.EventEntry
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			out = append(out, toEntry(item))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", s.calendarID, err)
	}

	s.logger.Debug("calendar listed", "calendar", s.calendarID, "from", from, "to", to, "events", len(out))
	return out, nil
}

func toEntry(item *calendar.Event) domain.EventEntry {
	e := domain.EventEntry{Summary: item.Summary, Location: item.Location}
	if item.Start != nil {
		e.Start = domain.EventStart{DateTime: item.Start.DateTime, Date: item.Start.Date}
	}
	if item.End != nil {
		e.End = domain.EventStart{DateTime: item.End.DateTime, Date: item.End.Date}
	}
	return e
}

func readCredentials(v string) ([]byte, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, errors.New("service account credentials are empty")
	}
	if strings.HasPrefix(v, "{") {
		return []byte(v), nil
	}
	data, err := os.ReadFile(v)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return data, nil
}
