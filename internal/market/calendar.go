package market

import (
	"sort"
	"time"
)

// Calendar is the ordered, deduplicated union of all symbols' trading dates.
func (t *Table) Calendar() []time.Time {
	seen := make(map[int64]time.Time)
	for _, bs := range t.series {
		for _, b := range bs {
			seen[b.Date.Unix()] = b.Date
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// CalendarRange returns the calendar clipped to [start, end] inclusive. Zero
// start or end leaves that side unbounded.
func (t *Table) CalendarRange(start, end time.Time) []time.Time {
	all := t.Calendar()
	out := all[:0:0]
	for _, d := range all {
		if !start.IsZero() && d.Before(dayStart(start)) {
			continue
		}
		if !end.IsZero() && d.After(dayStart(end)) {
			continue
		}
		out = append(out, d)
	}
	return out
}
