package domain

import "time"

// CivilDate truncates t to midnight of its calendar day in t's own location.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDate reports whether a and b fall on the same calendar day in loc.
func SameDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// ResolveTargetDate returns the day a report built on today covers, and how
// many days ahead of today it is. The answer is tomorrow unless tomorrow is on
// a weekend, in which case it is the following Monday: Friday yields +3,
// Saturday +2, Sunday +1.
func ResolveTargetDate(today time.Time) (time.Time, int) {
	start := CivilDate(today)
	offset := 1
	for {
		wd := start.AddDate(0, 0, offset).Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			break
		}
		offset++
	}
	return start.AddDate(0, 0, offset), offset
}

var weekdayNames = [...]string{"日", "一", "二", "三", "四", "五", "六"}

// FormatDate renders a date as "2026/10/15（四）".
func FormatDate(t time.Time) string {
	return t.Format("2006/01/02") + "（" + weekdayNames[t.Weekday()] + "）"
}
