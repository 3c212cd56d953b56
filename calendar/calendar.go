/*
calendar.go - Week numbering and week-boundary derivation

PURPOSE:
  Pure calendar math for the weekly performance engine. Every stored record
  is keyed by (year, week number); this package is the single authority for
  converting a date to that key and back to a concrete Monday..Sunday range.

WEEK NUMBERING:
  Thursday-anchored, Monday-start weeks ("ISO-ish"):
  1. Normalize the date to UTC midnight.
  2. Shift to the Thursday of its week (Sunday counts as weekday 7).
  3. The Thursday's year is the week's year.
  4. week = ceil((thursday - Jan 1 of that year + 1) / 7)

WEEK BOUNDARIES:
  DateRange anchors on January 4 (always inside week 1), walks back to that
  week's Monday, then advances (week-1)*7 days. End is Start + 6 days.

CONTRACT:
  WeekOf(w.DateRange().Start) round-trips to w for every valid (year, week).
  Week numbers are in [1, 53]. Start is always a Monday, End always a Sunday.

SEE ALSO:
  - engine/rollover.go: resolves current/previous week from "now"
  - engine/lifecycle.go: stamps Start/End onto new records
*/
package calendar

import (
	"fmt"
	"time"
)

// Week identifies one calendar week of one year.
type Week struct {
	Year   int
	Number int
}

// Range is an inclusive [Start, End] span of days, UTC midnight.
type Range struct {
	Start time.Time
	End   time.Time
}

// Date builds a UTC-midnight time from year/month/day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Midnight normalizes any timestamp to UTC midnight of the same calendar day.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekOf returns the week containing the given date.
func WeekOf(t time.Time) Week {
	d := Midnight(t)

	// Sunday counts as weekday 7, so the shift lands on the Thursday of
	// the Monday-start week containing d.
	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	thursday := d.AddDate(0, 0, 4-weekday)

	year := thursday.Year()
	jan1 := Date(year, time.January, 1)
	days := int(thursday.Sub(jan1).Hours()/24) + 1

	number := days / 7
	if days%7 != 0 {
		number++
	}

	return Week{Year: year, Number: number}
}

// DateRange returns the Monday..Sunday range covered by the week.
func (w Week) DateRange() Range {
	// January 4 is always inside week 1.
	jan4 := Date(w.Year, time.January, 4)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := jan4.AddDate(0, 0, 1-weekday)

	start := monday.AddDate(0, 0, (w.Number-1)*7)
	return Range{Start: start, End: start.AddDate(0, 0, 6)}
}

// Previous returns the week before w using the fixed wrap rule: week 1 of any
// year rolls back to week 52 of the prior year. Historical records were
// numbered under this rule, so 53-week years are intentionally not special-cased.
func (w Week) Previous() Week {
	if w.Number == 1 {
		return Week{Year: w.Year - 1, Number: 52}
	}
	return Week{Year: w.Year, Number: w.Number - 1}
}

// Contains reports whether t falls inside the range (inclusive on both ends).
func (r Range) Contains(t time.Time) bool {
	d := Midnight(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// PriorDays returns the n-day range immediately before r.
func (r Range) PriorDays(n int) Range {
	end := r.Start.AddDate(0, 0, -1)
	return Range{Start: end.AddDate(0, 0, -(n - 1)), End: end}
}

// TrailingDays returns the n-day range ending at r.End.
func (r Range) TrailingDays(n int) Range {
	return Range{Start: r.End.AddDate(0, 0, -(n - 1)), End: r.End}
}

func (w Week) String() string {
	return fmt.Sprintf("%d-W%02d", w.Year, w.Number)
}

func (r Range) String() string {
	return "[" + r.Start.Format("2006-01-02") + ", " + r.End.Format("2006-01-02") + "]"
}
