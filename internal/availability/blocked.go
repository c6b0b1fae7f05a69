package availability

import (
	"context"
	"time"

	"ignite-call/internal/apperr"
	"ignite-call/internal/calendar"
)

// BlockedDates returns the weekdays with no configured interval and the days
// of month that are fully booked.
func (r *Resolver) BlockedDates(ctx context.Context, username string, year, month int) (calendar.Blocked, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return calendar.Blocked{}, apperr.NewValidation(msgMonthInvalid)
	}

	userID, err := r.lookupUser(ctx, username)
	if err != nil {
		return calendar.Blocked{}, err
	}

	intervals, err := r.repo.ListTimeIntervals(ctx, userID)
	if err != nil {
		return calendar.Blocked{}, apperr.Internal(err)
	}

	byWeekDay := make(map[int]TimeInterval, len(intervals))
	for _, iv := range intervals {
		byWeekDay[iv.WeekDay] = iv
	}

	blocked := calendar.Blocked{BlockedWeekDays: []int{}, BlockedDates: []int{}}
	for wd := 0; wd < 7; wd++ {
		if _, ok := byWeekDay[wd]; !ok {
			blocked.BlockedWeekDays = append(blocked.BlockedWeekDays, wd)
		}
	}
	if len(intervals) == 0 {
		return blocked, nil
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, r.loc)
	next := first.AddDate(0, 1, 0)
	dates, err := r.repo.ListSchedulingDates(ctx, userID, first, next.Add(-time.Nanosecond))
	if err != nil {
		return calendar.Blocked{}, apperr.Internal(err)
	}

	perDay := make(map[int]int)
	for _, d := range dates {
		local := d.In(r.loc)
		if local.Year() == year && int(local.Month()) == month {
			perDay[local.Day()]++
		}
	}

	for day := 1; day <= calendar.DaysIn(year, time.Month(month), r.loc); day++ {
		count := perDay[day]
		if count == 0 {
			continue
		}
		wd := int(time.Date(year, time.Month(month), day, 0, 0, 0, 0, r.loc).Weekday())
		iv, ok := byWeekDay[wd]
		if !ok {
			continue
		}
		if count >= len(iv.Hours()) {
			blocked.BlockedDates = append(blocked.BlockedDates, day)
		}
	}
	return blocked, nil
}
