// Package calendar builds the month grid shown on a user's booking page and
// decides which days can be selected.
package calendar

import "time"

// Reason explains why a day is disabled. The zero value means selectable.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonFillDay        Reason = "fill_day"
	ReasonPast           Reason = "past"
	ReasonBlockedWeekDay Reason = "blocked_week_day"
	ReasonBlockedDate    Reason = "blocked_date"
)

// Blocked is the per-month exclusion data for a user.
type Blocked struct {
	BlockedWeekDays []int `json:"blockedWeekDays"`
	BlockedDates    []int `json:"blockedDates"`
}

// Day is one cell of the grid.
type Day struct {
	Date     time.Time `json:"date"`
	Disabled bool      `json:"disabled"`
	Reason   Reason    `json:"reason,omitempty"`
}

// Week holds exactly seven consecutive days. Week numbers start at 1.
type Week struct {
	Week int   `json:"week"`
	Days []Day `json:"days"`
}

// Predicate disables a day when Matches returns true.
type Predicate struct {
	Reason  Reason
	Matches func(day, now time.Time, blocked Blocked) bool
}

// DefaultPredicates is evaluated in order; the first match wins.
var DefaultPredicates = []Predicate{
	{Reason: ReasonPast, Matches: isPast},
	{Reason: ReasonBlockedWeekDay, Matches: onBlockedWeekDay},
	{Reason: ReasonBlockedDate, Matches: onBlockedDate},
}

// EndOfDay returns the last millisecond of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func isPast(day, now time.Time, _ Blocked) bool {
	return EndOfDay(day).Before(now)
}

func onBlockedWeekDay(day, _ time.Time, blocked Blocked) bool {
	return contains(blocked.BlockedWeekDays, int(day.Weekday()))
}

func onBlockedDate(day, _ time.Time, blocked Blocked) bool {
	return contains(blocked.BlockedDates, day.Day())
}

func contains(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// Evaluate runs predicates against day and returns the first matching reason.
func Evaluate(day, now time.Time, blocked Blocked, predicates []Predicate) Reason {
	for _, p := range predicates {
		if p.Matches != nil && p.Matches(day, now, blocked) {
			return p.Reason
		}
	}
	return ReasonNone
}

// BuildMonth lays out month in loc as complete weeks using DefaultPredicates.
func BuildMonth(year int, month time.Month, loc *time.Location, now time.Time, blocked Blocked) []Week {
	return BuildMonthWith(year, month, loc, now, blocked, DefaultPredicates)
}

// BuildMonthWith is BuildMonth with a caller supplied predicate list.
//
// Days of the previous month that pad the first week are always disabled.
// Days of the next month that pad the last week go through the predicates
// like any other day.
func BuildMonthWith(year int, month time.Month, loc *time.Location, now time.Time, blocked Blocked, predicates []Predicate) []Week {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := DaysIn(year, month, loc)
	last := first.AddDate(0, 0, daysInMonth-1)

	leading := int(first.Weekday())
	trailing := 6 - int(last.Weekday())

	days := make([]Day, 0, leading+daysInMonth+trailing)
	for i := leading; i > 0; i-- {
		days = append(days, Day{Date: first.AddDate(0, 0, -i), Disabled: true, Reason: ReasonFillDay})
	}
	for i := 0; i < daysInMonth+trailing; i++ {
		date := first.AddDate(0, 0, i)
		reason := Evaluate(date, now, blocked, predicates)
		days = append(days, Day{Date: date, Disabled: reason != ReasonNone, Reason: reason})
	}

	weeks := make([]Week, 0, len(days)/7)
	for i := 0; i < len(days); i += 7 {
		weeks = append(weeks, Week{Week: i/7 + 1, Days: days[i : i+7]})
	}
	return weeks
}

// DaysIn returns the number of days in month.
func DaysIn(year int, month time.Month, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
