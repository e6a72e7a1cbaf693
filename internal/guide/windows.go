// SPDX-License-Identifier: MIT

package guide

import "time"

const (
	// WindowsPerDay partitions each day into fixed listing windows.
	WindowsPerDay = 4
	WindowSpan    = 6 * time.Hour
)

// Window is a [Start, End) slice in unix seconds.
type Window struct {
	Index int
	Day   int
	Start int64
	End   int64
}

// DayStart returns local midnight of t's day.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Windows partitions days days starting at base into contiguous windows.
func Windows(base time.Time, days int) []Window {
	if days <= 0 {
		return nil
	}
	out := make([]Window, 0, days*WindowsPerDay)
	start := base.Unix()
	span := int64(WindowSpan / time.Second)
	for i := 0; i < days*WindowsPerDay; i++ {
		out = append(out, Window{
			Index: i,
			Day:   i / WindowsPerDay,
			Start: start,
			End:   start + span,
		})
		start += span
	}
	return out
}
