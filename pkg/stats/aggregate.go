package stats

import (
	"sort"
	"time"

	"github.com/osmcz/mapcampaign/pkg/osm"
)

// HistogramDays is the length of the daily activity histogram.
const HistogramDays = 30

// LeaderboardSize caps the number of leaderboard entries.
const LeaderboardSize = 10

// LeaderboardEntry is one row of the contributor leaderboard.
type LeaderboardEntry struct {
	User       string `json:"user"`
	Changesets int    `json:"changesets"`
}

// Snapshot is an immutable set of campaign statistics derived from one fetch cycle.
// DailyStats is oldest-first: index 0 is 29 days ago, index 29 is today.
type Snapshot struct {
	TotalChangesets   int                `json:"total_changesets"`
	TotalContributors int                `json:"total_contributors"`
	ChangesetsToday   int                `json:"changesets_today"`
	ChangesetsWeek    int                `json:"changesets_week"`
	Leaderboard       []LeaderboardEntry `json:"leaderboard"`
	DailyStats        []int              `json:"daily_stats"`
	LastUpdated       time.Time          `json:"last_updated"`
}

// Aggregate derives a Snapshot from raw changeset records. It is a pure function
// of records and now; records with unparseable timestamps only contribute to the
// totals and the leaderboard, never to the time-bucketed counters.
func Aggregate(records []osm.Changeset, now time.Time) *Snapshot {
	snap := &Snapshot{
		Leaderboard: []LeaderboardEntry{},
		DailyStats:  make([]int, HistogramDays),
		LastUpdated: now,
	}
	if len(records) == 0 {
		return snap
	}

	snap.TotalChangesets = len(records)

	users := map[string]bool{}
	counts := map[string]int{}
	order := []string{}

	today := midnight(now)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	dailyCounts := map[int]int{}

	for _, r := range records {
		if r.User != "" {
			users[r.User] = true
			if _, seen := counts[r.User]; !seen {
				order = append(order, r.User)
			}
			counts[r.User]++
		}

		if r.CreatedAt == "" {
			continue
		}
		created, err := time.Parse(time.RFC3339, r.CreatedAt)
		if err != nil {
			// skipped, surfaced by the caller's refresh log
			continue
		}

		createdDay := midnight(created)
		if createdDay.Equal(today) {
			snap.ChangesetsToday++
		}
		if !created.Before(weekAgo) {
			snap.ChangesetsWeek++
		}

		daysAgo := int(today.Sub(createdDay).Hours() / 24)
		if daysAgo >= 0 && daysAgo < HistogramDays {
			dailyCounts[daysAgo]++
		}
	}

	snap.TotalContributors = len(users)

	// Stable sort keeps first-encounter order for equal counts.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	for i, user := range order {
		if i == LeaderboardSize {
			break
		}
		snap.Leaderboard = append(snap.Leaderboard, LeaderboardEntry{User: user, Changesets: counts[user]})
	}

	// Reorder buckets oldest-first.
	for i := HistogramDays - 1; i >= 0; i-- {
		snap.DailyStats[HistogramDays-1-i] = dailyCounts[i]
	}

	return snap
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
