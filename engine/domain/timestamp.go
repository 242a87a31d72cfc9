package domain

import (
	"math"
	"time"
)

const isoLayout = "2006-01-02T15:04:05"

// FormatCreatedISO renders a Unix timestamp as a UTC ISO-8601 date-time with
// no offset and a literal "Z" appended. Microseconds are included only when
// the timestamp has a non-zero fractional part. Half microseconds round to
// even.
func FormatCreatedISO(createdUTC float64) string {
	t := time.UnixMicro(int64(math.RoundToEven(createdUTC * 1e6))).UTC()
	if t.Nanosecond() == 0 {
		return t.Format(isoLayout) + "Z"
	}
	return t.Format(isoLayout+".000000") + "Z"
}
