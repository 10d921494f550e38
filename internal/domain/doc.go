// Package domain models the itinerary weather report: calendar events, the
// coordinates and administrative areas their locations resolve to, and the
// normalized forecast every weather provider is reduced to.
//
// # Target Date
//
// Reports go out in the evening and cover the next working day. A report built
// on a Friday covers Monday. The calculation runs on the civil date of the
// operating region (Asia/Taipei by default), never on a UTC day boundary, so a
// run at 07:30 local time is still "today" even though UTC has not rolled over.
//
// # Forecast Windows
//
// A timed event asks for the forecast slice closest to its start hour. A
// date-only (all-day) event, or one whose start cannot be parsed, asks for the
// midday slice. Slices are matched to the target by civil date; provider array
// positions are never trusted because providers disagree on whether index 0 is
// "today" or "the first full day".
//
//	09:00 event, slices 06:00 / 09:00 / 12:00  →  09:00
//	10:30 event, slices 09:00 / 12:00          →  12:00 (ties go later)
//	all-day,     slices 09:00 / 12:00 / 15:00  →  12:00
//
// # Provider Tiers
//
// Providers are tried in a fixed order until one covers the window. Partial
// records (no UV, no feels-like) are usable. Every record carries the [Source]
// of the tier that produced it. A provider whose horizon ends before the target
// date fails with [KindHorizon] without a request being made.
//
// # UV Bands
//
// UV index bands use inclusive upper bounds:
//
//	0–2 low | 2–5 moderate | 5–7 high | 7–10 very high | >10 extreme
//
// Anything that does not parse as a non-negative number is [UVUnknown].
package domain
