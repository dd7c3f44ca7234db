package domain

import "time"

// QuotaDateLayout is the calendar-date encoding used in the quota document.
const QuotaDateLayout = "2006-01-02"

// QuotaState is the persisted daily admission budget.
type QuotaState struct {
	LastResetDate string
	Remaining     int
}

// NeedsReset reports whether now falls on a later local calendar date than the
// last reset. Remaining must not be trusted while this returns true.
func (q QuotaState) NeedsReset(now time.Time, loc *time.Location) bool {
	return now.In(loc).Format(QuotaDateLayout) != q.LastResetDate
}
