package availability

import "time"

// HourBucket maps a booking instant to the hour of day it occupies in loc.
//
// This is lossy: 10:00 and 10:59 both land in bucket 10. Slots are whole
// hours, so a booking is treated as holding its entire hour.
func HourBucket(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Hour()
}

// HourBuckets converts booking instants to the set of occupied hours.
func HourBuckets(dates []time.Time, loc *time.Location) map[int]struct{} {
	out := make(map[int]struct{}, len(dates))
	for _, d := range dates {
		out[HourBucket(d, loc)] = struct{}{}
	}
	return out
}
