package period

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind selects the boundary rule of the voting period.
type Kind string

const (
	// Monthly announces one winner at a fixed instant and then stays terminal.
	Monthly Kind = "monthly"
	// Quarterly re-opens voting every calendar quarter, always re-selecting
	// among ideas that have not won before.
	Quarterly Kind = "quarterly"
)

// DateLayout is the wire format of project start/end dates.
const DateLayout = "2006-01-02"

// Project is the decided campaign project for the active window.
type Project struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author,omitempty"`
	Votes       int    `json:"votes,omitempty"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// Machine drives the voting-period transitions. It only decides WHEN a winner
// is due; picking the winner and the side effects (chat announcement,
// persistence, broadcast) belong to the caller, which runs them once per due
// tick. Re-checking after an announcement for the current window is a no-op.
type Machine struct {
	mu         sync.Mutex
	kind       Kind
	announceAt time.Time
	current    *Project
	logger     *zap.Logger
}

// NewMachine creates a Machine that becomes due at announceAt.
func NewMachine(kind Kind, announceAt time.Time, logger *zap.Logger) *Machine {
	return &Machine{
		kind:       kind,
		announceAt: announceAt.UTC(),
		logger:     logger,
	}
}

// Due reports whether a winner announcement is pending at now.
func (m *Machine) Due(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Before(m.announceAt) {
		return false
	}
	// Monthly is terminal after the single announcement. Quarterly advances
	// announceAt on every announcement, so reaching it again means a new window.
	return m.kind != Monthly || m.current == nil
}

// ExcludeWinning reports whether winner selection must skip prior winners.
func (m *Machine) ExcludeWinning() bool {
	return m.kind == Quarterly
}

// Window returns the project window that an announcement made now would span.
func (m *Machine) Window() (start, end time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.announceAt, m.windowEnd()
}

func (m *Machine) windowEnd() time.Time {
	if m.kind == Quarterly {
		return NextQuarterStart(m.announceAt)
	}
	return m.announceAt.AddDate(0, 1, 0)
}

// Announce records the decided project and, for the quarterly rule, arms the
// next boundary. Must be called at most once per due window.
func (m *Machine) Announce(p Project) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = &p
	next := m.windowEnd()
	if m.kind == Quarterly {
		m.announceAt = next
	}

	m.logger.Info("Project announced",
		zap.Int64("id", p.ID),
		zap.String("title", p.Title),
		zap.String("start", p.StartDate),
		zap.String("end", p.EndDate))
}

// Current returns the active project, or nil when voting is still open.
func (m *Machine) Current() *Project {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	p := *m.current
	return &p
}

// Restore installs a persisted project at startup and advances the boundary
// past its window so the machine does not re-announce mid-window.
func (m *Machine) Restore(p *Project) {
	if p == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = p
	if m.kind != Quarterly {
		return
	}
	if end, err := time.ParseInLocation(DateLayout, p.EndDate, time.UTC); err == nil && end.After(m.announceAt) {
		m.announceAt = end
	}
}

// NextQuarterStart returns the first calendar quarter boundary strictly after t.
func NextQuarterStart(t time.Time) time.Time {
	t = t.UTC()
	year := t.Year()
	for _, month := range []time.Month{time.April, time.July, time.October} {
		boundary := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		if boundary.After(t) {
			return boundary
		}
	}
	return time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
}
