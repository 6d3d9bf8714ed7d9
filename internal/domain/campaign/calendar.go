// internal/domain/campaign/calendar.go
package campaign

import "time"

// DayOffset returns the number of whole civil days between the campaign start
// and now, both interpreted in the campaign timezone. Negative means the
// campaign has not started yet.
func DayOffset(start, now time.Time, loc *time.Location) int {
	s := start.In(loc)
	n := now.In(loc)
	// Anchor both civil dates at UTC midnight so the difference is an exact
	// multiple of 24h even across DST shifts.
	sd := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	nd := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return int(nd.Sub(sd).Hours() / 24)
}

// SameCivilDay reports whether a and b fall on the same calendar day in loc.
func SameCivilDay(a, b time.Time, loc *time.Location) bool {
	al := a.In(loc)
	bl := b.In(loc)
	ay, am, ad := al.Date()
	by, bm, bd := bl.Date()
	return ay == by && am == bm && ad == bd
}

// CivilDayWindowUTC returns the UTC bounds [start, end) of the civil day
// containing t in loc. The end bound is the next civil midnight, so the window
// is 23 or 25 hours long on DST transition days.
func CivilDayWindowUTC(t time.Time, loc *time.Location) (time.Time, time.Time) {
	l := t.In(loc)
	dayStart := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	return dayStart.UTC(), dayEnd.UTC()
}
