package model

import "time"

// QuotaRecord is the persisted daily counter. Date is the calendar day in
// the quota location, formatted with QuotaDateLayout.
type QuotaRecord struct {
	Date      string
	Count     int
	ResetTime time.Time
}

const QuotaDateLayout = "2006-01-02"

type LimitCheck struct {
	CanSend   bool
	Remaining int
	ResetTime time.Time
}

type QuotaInfo struct {
	Count     int
	Limit     int
	ResetTime time.Time
}

func (q QuotaInfo) Remaining() int {
	return max(0, q.Limit-q.Count)
}
