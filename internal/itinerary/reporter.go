// Package itinerary builds the next-working-day report: calendar events for
// the target date, each with the forecast at its location.
package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/googlemaps"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/forecast"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/location"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

// ErrCalendarUnavailable is fatal for a run: without events there is no
// report to send.
var ErrCalendarUnavailable = errors.New("calendar unavailable")

const (
	untitled       = "（未命名）"
	noLocation     = "（無地點）"
	allDayLabel    = "(整天)"
	badStartLabel  = "(時間錯誤)"
	reportHeader   = "【行程提醒】"
	noEventsSuffix = "沒有外出行程"
)

// Config wires a Reporter.
type Config struct {
	Calendar         domain.CalendarSource
	Geocoder         domain.Geocoder
	Chain            *forecast.Chain
	Location         *time.Location
	GeocodeCacheSize int
	Clock            clockwork.Clock
	Metrics          *observability.Metrics
	Logger           *slog.Logger
}

// Reporter turns calendar events into report text.
type Reporter struct {
	calendar  domain.CalendarSource
	geocoder  domain.Geocoder
	chain     *forecast.Chain
	loc       *time.Location
	cacheSize int
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewReporter creates a Reporter. A nil Clock means the real clock.
func NewReporter(cfg Config) *Reporter {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Reporter{
		calendar:  cfg.Calendar,
		geocoder:  cfg.Geocoder,
		chain:     cfg.Chain,
		loc:       loc,
		cacheSize: cfg.GeocodeCacheSize,
		clock:     clock,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Report is one build's output.
type Report struct {
	TargetDate time.Time   `json:"target_date"`
	OffsetDays int         `json:"offset_days"`
	Events     []EventLine `json:"events"`
	Text       string      `json:"text"`
}

// EventLine is one event's rendered entry.
type EventLine struct {
	Entry    domain.EventEntry `json:"entry"`
	Label    string            `json:"label"`
	Outcome  string            `json:"outcome,omitempty"`
	Source   domain.Source     `json:"source,omitempty"`
	Forecast string            `json:"forecast,omitempty"`
	Text     string            `json:"text"`
}

// Today returns the current time in the report zone.
func (r *Reporter) Today() time.Time {
	return r.clock.Now().In(r.loc)
}

// Run fetches the target date's events and builds the report.
func (r *Reporter) Run(ctx context.Context) (Report, error) {
	today := r.Today()
	target, _ := domain.ResolveTargetDate(today)

	events, err := r.calendar.ListEvents(ctx, target, target.AddDate(0, 0, 1))
	if err != nil {
		r.count("fatal")
		return Report{}, fmt.Errorf("%w: %w", ErrCalendarUnavailable, err)
	}
	r.logger.Info("calendar events fetched", "target_date", target.Format(time.DateOnly), "events", len(events))
	return r.BuildReport(ctx, events, today), nil
}

// BuildReport renders events for the working day after today. Events that
// started earlier and run through that day are listed as all-day; events
// that do not touch it are dropped; events whose start cannot be read are
// kept. Output order follows input order.
func (r *Reporter) BuildReport(ctx context.Context, events []domain.EventEntry, today time.Time) Report {
	today = today.In(r.loc)
	target, offset := domain.ResolveTargetDate(today)
	rep := Report{TargetDate: target, OffsetDays: offset}

	// One cache per build: events at the same place share lookups, and
	// nothing is remembered between runs.
	resolver := location.NewResolver(r.runGeocoder(), r.logger)

	for _, ev := range events {
		start, kind, placed, err := ev.Place(target, r.loc)
		if err != nil {
			r.logger.Warn("event start unreadable", "summary", ev.Summary, "error", err)
		}
		switch placed {
		case domain.PlacedOff:
			continue
		case domain.PlacedOngoing:
			kind = domain.StartAllDay
		}
		window := domain.WindowForStart(start, kind, target, offset)
		rep.Events = append(rep.Events, r.renderEvent(ctx, resolver, ev, start, kind, window))
	}

	if r.metrics != nil {
		r.metrics.EventsPerReport.Observe(float64(len(rep.Events)))
	}

	if len(rep.Events) == 0 {
		rep.Text = "📅 " + domain.FormatDate(target) + noEventsSuffix
		r.count("no_events")
		return rep
	}

	parts := make([]string, 0, len(rep.Events)+1)
	parts = append(parts, reportHeader+domain.FormatDate(target))
	for _, line := range rep.Events {
		parts = append(parts, line.Text)
	}
	rep.Text = strings.Join(parts, "\n\n")
	r.count("ok")
	return rep
}

func (r *Reporter) renderEvent(ctx context.Context, resolver *location.Resolver, ev domain.EventEntry, start time.Time, kind domain.StartKind, w domain.ForecastWindow) EventLine {
	title := strings.TrimSpace(ev.Summary)
	if title == "" {
		title = untitled
	}
	line := EventLine{Entry: ev, Label: startLabel(start, kind)}
	head := "📌 " + line.Label + "《" + title + "》"

	where := strings.TrimSpace(ev.Location)
	if where == "" {
		line.Text = head + noLocation
		return line
	}

	res := r.resolve(ctx, resolver, where, w)
	line.Outcome = res.Outcome.String()
	line.Source = res.Record.Source
	line.Forecast = domain.Render(res)
	line.Text = head + "\n📍 " + where + "\n🌤️ " + line.Forecast
	return line
}

// resolve runs location resolution then the provider chain for one place.
func (r *Reporter) resolve(ctx context.Context, resolver *location.Resolver, text string, w domain.ForecastWindow) domain.ForecastResult {
	var res domain.ForecastResult
	place, err := resolver.ResolvePlace(ctx, text)
	if err != nil {
		r.logger.Info("location not resolved", "query", text, "kind", domain.KindOf(err))
		res = domain.NoLocation(err)
	} else {
		res = r.chain.Resolve(ctx, place, w)
	}
	if r.metrics != nil {
		r.metrics.ForecastOutcomes.WithLabelValues(res.Outcome.String()).Inc()
	}
	return res
}

func (r *Reporter) runGeocoder() domain.Geocoder {
	if r.cacheSize <= 0 {
		return r.geocoder
	}
	return googlemaps.NewCachedGeocoder(r.geocoder, r.cacheSize, r.metrics)
}

func (r *Reporter) count(outcome string) {
	if r.metrics != nil {
		r.metrics.ReportsBuilt.WithLabelValues(outcome).Inc()
	}
}

func startLabel(start time.Time, kind domain.StartKind) string {
	switch kind {
	case domain.StartTimed:
		return start.Format("15:04")
	case domain.StartAllDay:
		return allDayLabel
	default:
		return badStartLabel
	}
}
