package market

import (
	"sort"
	"time"
)

// NewDailySnapshot starts an empty snapshot for the UTC date of now
func NewDailySnapshot(now time.Time) DailySnapshot {
	now = now.UTC()
	return DailySnapshot{
		Date:      now.Format(DateLayout),
		ScrapedAt: now.Format(time.RFC3339Nano),
		Consoles:  make(map[string]ConsoleStats),
	}
}

// UpsertHistory replaces any entry sharing snap's date, appends snap and
// returns the history sorted ascending by date. The input slice is not
// modified.
func UpsertHistory(history []DailySnapshot, snap DailySnapshot) []DailySnapshot {
	out := make([]DailySnapshot, 0, len(history)+1)
	for _, entry := range history {
		if entry.Date != snap.Date {
			out = append(out, entry)
		}
	}
	out = append(out, snap)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}
