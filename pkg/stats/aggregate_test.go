package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/osmcz/mapcampaign/pkg/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var aggNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func record(user string, createdAt string) osm.Changeset {
	return osm.Changeset{ID: "1", User: user, CreatedAt: createdAt}
}

func TestAggregateEmptyInput(t *testing.T) {
	snap := Aggregate(nil, aggNow)

	assert.Equal(t, 0, snap.TotalChangesets)
	assert.Equal(t, 0, snap.TotalContributors)
	assert.Empty(t, snap.Leaderboard)
	assert.Len(t, snap.DailyStats, HistogramDays)
	assert.Equal(t, aggNow, snap.LastUpdated)
}

func TestAggregateCounters(t *testing.T) {
	records := []osm.Changeset{
		record("alice", "2026-01-15T09:00:00Z"), // today
		record("alice", "2026-01-12T09:00:00Z"), // this week
		record("bob", "2026-01-01T09:00:00Z"),   // this month only
		record("carol", "2025-11-01T09:00:00Z"), // outside the histogram
		record("", "2026-01-15T10:00:00Z"),      // anonymous, no contributor
	}

	snap := Aggregate(records, aggNow)

	assert.Equal(t, 5, snap.TotalChangesets)
	assert.Equal(t, 3, snap.TotalContributors)
	assert.Equal(t, 2, snap.ChangesetsToday)
	assert.Equal(t, 3, snap.ChangesetsWeek)
}

func TestAggregateHistogramShape(t *testing.T) {
	records := []osm.Changeset{
		record("alice", "2026-01-15T08:00:00Z"), // today -> index 29
		record("alice", "2026-01-14T08:00:00Z"), // yesterday -> index 28
		record("bob", "2025-12-17T08:00:00Z"),   // 29 days ago -> index 0
		record("bob", "2025-12-16T08:00:00Z"),   // 30 days ago -> dropped
	}

	snap := Aggregate(records, aggNow)

	require.Len(t, snap.DailyStats, HistogramDays)
	assert.Equal(t, 1, snap.DailyStats[29], "index 29 is today")
	assert.Equal(t, 1, snap.DailyStats[28])
	assert.Equal(t, 1, snap.DailyStats[0], "index 0 is 29 days ago")

	sum := 0
	for _, n := range snap.DailyStats {
		sum += n
	}
	assert.LessOrEqual(t, sum, snap.TotalChangesets)
}

func TestAggregateLeaderboard(t *testing.T) {
	var records []osm.Changeset
	// bob has 3, alice 2; carol..k share 1 each in encounter order
	for i := 0; i < 3; i++ {
		records = append(records, record("bob", "2026-01-10T08:00:00Z"))
	}
	for i := 0; i < 2; i++ {
		records = append(records, record("alice", "2026-01-10T08:00:00Z"))
	}
	for i := 0; i < 12; i++ {
		records = append(records, record(fmt.Sprintf("user%02d", i), "2026-01-10T08:00:00Z"))
	}

	snap := Aggregate(records, aggNow)

	require.Len(t, snap.Leaderboard, LeaderboardSize)
	assert.Equal(t, LeaderboardEntry{User: "bob", Changesets: 3}, snap.Leaderboard[0])
	assert.Equal(t, LeaderboardEntry{User: "alice", Changesets: 2}, snap.Leaderboard[1])
	// ties keep first-encounter order
	assert.Equal(t, "user00", snap.Leaderboard[2].User)
	assert.Equal(t, "user07", snap.Leaderboard[9].User)
}

func TestAggregateSkipsUnparseableTimestamps(t *testing.T) {
	records := []osm.Changeset{
		record("alice", "not-a-timestamp"),
		record("alice", ""),
		record("alice", "2026-01-15T08:00:00Z"),
	}

	snap := Aggregate(records, aggNow)

	assert.Equal(t, 3, snap.TotalChangesets, "bad timestamps still count toward the total")
	assert.Equal(t, 1, snap.ChangesetsToday)
	assert.Equal(t, 1, snap.TotalContributors)
}

func TestAggregateIsPure(t *testing.T) {
	records := []osm.Changeset{
		record("alice", "2026-01-15T08:00:00Z"),
		record("bob", "2026-01-10T08:00:00Z"),
	}

	first := Aggregate(records, aggNow)
	second := Aggregate(records, aggNow)
	assert.Equal(t, first, second)
}
