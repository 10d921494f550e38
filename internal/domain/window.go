package domain

import (
	"fmt"
	"time"
)

// MiddayHour is the slice hour used when an event has no time of day.
const MiddayHour = 12

// ForecastWindow is the point a lookup targets: an hour of the target date,
// or midday when HasHour is false.
type ForecastWindow struct {
	TargetDate time.Time `json:"target_date"` // midnight, local
	Hour       int       `json:"hour"`
	HasHour    bool      `json:"has_hour"`
	OffsetDays int       `json:"offset_days"` // days between today and TargetDate
}

// MiddayWindow targets 12:00 on the target date.
func MiddayWindow(target time.Time, offsetDays int) ForecastWindow {
	return ForecastWindow{TargetDate: CivilDate(target), OffsetDays: offsetDays}
}

// HourWindow targets a specific hour of the target date.
func HourWindow(target time.Time, hour, offsetDays int) ForecastWindow {
	return ForecastWindow{TargetDate: CivilDate(target), Hour: hour, HasHour: true, OffsetDays: offsetDays}
}

// WindowForStart derives the window for an event start. Timed events target
// their start hour; all-day and unparseable starts target midday.
func WindowForStart(start time.Time, kind StartKind, target time.Time, offsetDays int) ForecastWindow {
	if kind == StartTimed {
		return HourWindow(target, start.Hour(), offsetDays)
	}
	return MiddayWindow(target, offsetDays)
}

// At returns the instant the window targets.
func (w ForecastWindow) At() time.Time {
	h := MiddayHour
	if w.HasHour {
		h = w.Hour
	}
	d := w.TargetDate
	return time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, d.Location())
}

// Location is the zone the target date is expressed in.
func (w ForecastWindow) Location() *time.Location {
	return w.TargetDate.Location()
}

// Covers reports whether t falls on the target date.
func (w ForecastWindow) Covers(t time.Time) bool {
	return SameDate(t, w.TargetDate, w.Location())
}

func (w ForecastWindow) String() string {
	if w.HasHour {
		return fmt.Sprintf("%s %02d:00", w.TargetDate.Format(time.DateOnly), w.Hour)
	}
	return w.TargetDate.Format(time.DateOnly) + " midday"
}

// ClosestSlice picks the index of the slice nearest the window's target
// instant among slices on the target date. Ties go to the later slice.
// It returns false when no slice falls on the target date.
func ClosestSlice(times []time.Time, w ForecastWindow) (int, bool) {
	at := w.At()
	best := -1
	var bestDist time.Duration
	for i, t := range times {
		if t.IsZero() || !w.Covers(t) {
			continue
		}
		dist := t.Sub(at)
		if dist < 0 {
			dist = -dist
		}
		if best == -1 || dist < bestDist || (dist == bestDist && t.After(times[best])) {
			best, bestDist = i, dist
		}
	}
	return best, best >= 0
}

// DailyIndex finds the daily entry whose date matches the target date.
func DailyIndex(days []time.Time, w ForecastWindow) (int, bool) {
	for i, d := range days {
		if !d.IsZero() && w.Covers(d) {
			return i, true
		}
	}
	return -1, false
}

// CheckHorizon fails with KindHorizon when the window lies beyond a
// provider's forecast horizon. maxDays <= 0 means unlimited.
func CheckHorizon(provider Source, w ForecastWindow, maxDays int) error {
	if maxDays > 0 && w.OffsetDays > maxDays {
		return Unavailable(provider, KindHorizon,
			fmt.Errorf("target is %d days ahead, horizon is %d", w.OffsetDays, maxDays))
	}
	return nil
}
