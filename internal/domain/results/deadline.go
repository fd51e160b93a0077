package results

import "time"

// The promised-by time of day. Kept at 11:59 deliberately: downstream
// consumers assume this value, see DESIGN.md before changing it.
const (
	deadlineHour   = 11
	deadlineMinute = 59
)

// PromiseDeadline computes when a result is promised, from the specimen
// collection time. Collections after noon roll to the next day; the time of
// day is always 11:59 UTC.
func PromiseDeadline(collected time.Time) time.Time {
	collected = collected.UTC()
	day := collected
	if collected.Hour() > 12 {
		day = collected.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), deadlineHour, deadlineMinute, 0, 0, time.UTC)
}
