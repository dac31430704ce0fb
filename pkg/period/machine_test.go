package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var boundary = time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)

func TestMonthlyMachine(t *testing.T) {
	m := NewMachine(Monthly, boundary, zaptest.NewLogger(t))

	assert.False(t, m.Due(boundary.Add(-time.Second)))
	assert.True(t, m.Due(boundary))
	assert.False(t, m.ExcludeWinning())
	assert.Nil(t, m.Current())

	start, end := m.Window()
	assert.Equal(t, boundary, start)
	assert.Equal(t, boundary.AddDate(0, 1, 0), end)

	m.Announce(Project{ID: 1, Title: "Fix the bridge tag", StartDate: "2026-01-06", EndDate: "2026-02-06"})

	// terminal: once announced the monthly machine never becomes due again
	assert.False(t, m.Due(boundary.Add(time.Hour)))
	assert.False(t, m.Due(boundary.AddDate(0, 2, 0)))

	current := m.Current()
	require.NotNil(t, current)
	assert.Equal(t, "Fix the bridge tag", current.Title)
}

func TestQuarterlyMachineAdvances(t *testing.T) {
	q1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMachine(Quarterly, q1, zaptest.NewLogger(t))

	assert.True(t, m.ExcludeWinning())
	assert.True(t, m.Due(q1))

	start, end := m.Window()
	assert.Equal(t, q1, start)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), end)

	m.Announce(Project{ID: 1, Title: "Q1 project", StartDate: "2026-01-01", EndDate: "2026-04-01"})

	// idempotent within the window, due again at the next quarter boundary
	assert.False(t, m.Due(q1.Add(time.Hour)))
	assert.False(t, m.Due(time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)))
	assert.True(t, m.Due(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))

	m.Announce(Project{ID: 2, Title: "Q2 project", StartDate: "2026-04-01", EndDate: "2026-07-01"})
	current := m.Current()
	require.NotNil(t, current)
	assert.Equal(t, "Q2 project", current.Title)
	assert.False(t, m.Due(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
}

func TestQuarterlyRestoreSkipsActiveWindow(t *testing.T) {
	q1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMachine(Quarterly, q1, zaptest.NewLogger(t))

	m.Restore(&Project{ID: 1, Title: "Q1 project", StartDate: "2026-01-01", EndDate: "2026-04-01"})

	// restart mid-window must not re-announce
	assert.False(t, m.Due(time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, m.Due(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMonthlyRestore(t *testing.T) {
	m := NewMachine(Monthly, boundary, zaptest.NewLogger(t))
	m.Restore(&Project{ID: 1, Title: "Loaded", StartDate: "2026-01-06", EndDate: "2026-02-06"})

	assert.False(t, m.Due(boundary.Add(time.Hour)))
	require.NotNil(t, m.Current())
}

func TestNextQuarterStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "mid first quarter",
			in:   time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC),
			want: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly on a boundary moves to the next one",
			in:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "fourth quarter rolls into next year",
			in:   time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
			want: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "january boundary",
			in:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextQuarterStart(tt.in))
		})
	}
}
