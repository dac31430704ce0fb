package ledger

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	minTitleLen       = 5
	minDescriptionLen = 10

	// DefaultVoteQuota is the number of votes each user gets per voting period.
	DefaultVoteQuota = 2

	defaultAuthor = "Anonymní"
)

// Idea is a submitted campaign proposal. Ideas are never deleted; only the vote
// count and the winning flag mutate after creation.
type Idea struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Votes       int       `json:"votes"`
	CreatedAt   time.Time `json:"created_at"`
	Winning     bool      `json:"winning"`
}

// Ledger is the in-memory store of ideas and per-user vote records. All
// mutations run under one mutex so the quota check-then-increment is atomic
// against concurrent votes from the same user.
type Ledger struct {
	mu     sync.Mutex
	ideas  []*Idea
	votes  map[string][]int64 // userID -> idea ids, ordered
	quota  int
	lastID int64
	now    func() time.Time
	logger *zap.Logger
}

// New creates an empty Ledger. quota <= 0 falls back to DefaultVoteQuota.
func New(quota int, logger *zap.Logger) *Ledger {
	if quota <= 0 {
		quota = DefaultVoteQuota
	}
	return &Ledger{
		votes:  map[string][]int64{},
		quota:  quota,
		now:    time.Now,
		logger: logger,
	}
}

// AddIdea validates and stores a new idea. The id is derived from the wall
// clock in milliseconds and bumped past the previous one on collision, so ids
// stay unique and monotonic within the process.
func (l *Ledger) AddIdea(title, description, author string) (Idea, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	author = strings.TrimSpace(author)

	switch {
	case title == "" || description == "":
		return Idea{}, &ValidationError{Message: "missing title or description"}
	case len([]rune(title)) < minTitleLen:
		return Idea{}, &ValidationError{Message: "title must be at least 5 characters"}
	case len([]rune(description)) < minDescriptionLen:
		return Idea{}, &ValidationError{Message: "description must be at least 10 characters"}
	}
	if author == "" {
		author = defaultAuthor
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	id := now.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id

	idea := &Idea{
		ID:          id,
		Title:       title,
		Description: description,
		Author:      author,
		CreatedAt:   now,
	}
	l.ideas = append(l.ideas, idea)

	l.logger.Info("Idea added",
		zap.Int64("id", idea.ID),
		zap.String("title", idea.Title),
		zap.String("author", idea.Author))
	return *idea, nil
}

// Vote records one vote by userID for ideaID and returns the new vote count.
// The not-found, duplicate and quota checks happen atomically under the lock.
func (l *Ledger) Vote(ideaID int64, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idea := l.find(ideaID)
	if idea == nil {
		return 0, ErrNotFound
	}

	cast := l.votes[userID]
	for _, id := range cast {
		if id == ideaID {
			return 0, ErrDuplicateVote
		}
	}
	if len(cast) >= l.quota {
		return 0, ErrQuotaExceeded
	}

	idea.Votes++
	l.votes[userID] = append(cast, ideaID)

	l.logger.Debug("Vote recorded",
		zap.Int64("idea_id", ideaID),
		zap.String("user_id", userID),
		zap.Int("votes", idea.Votes))
	return idea.Votes, nil
}

// SelectWinner picks the idea with the most votes, ties broken by earliest
// created_at, then by lowest id, and marks it winning. With excludeWinning set,
// ideas that already won a previous period are skipped.
func (l *Ledger) SelectWinner(excludeWinning bool) (Idea, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var best *Idea
	for _, idea := range l.ideas {
		if excludeWinning && idea.Winning {
			continue
		}
		if best == nil || better(idea, best) {
			best = idea
		}
	}
	if best == nil {
		return Idea{}, false
	}

	best.Winning = true
	return *best, true
}

func better(a, b *Idea) bool {
	if a.Votes != b.Votes {
		return a.Votes > b.Votes
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// ResetVotes clears every user's vote record at a period rollover. Idea vote
// counts are untouched; only the quota accounting starts over.
func (l *Ledger) ResetVotes() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.votes = map[string][]int64{}
	l.logger.Info("Vote records reset for new period")
}

// Ideas returns a copy of all ideas in submission order.
func (l *Ledger) Ideas() []Idea {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Idea, 0, len(l.ideas))
	for _, idea := range l.ideas {
		out = append(out, *idea)
	}
	return out
}

// Export returns the persistent view of the ledger for the snapshotter.
func (l *Ledger) Export() ([]Idea, map[string][]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ideas := make([]Idea, 0, len(l.ideas))
	for _, idea := range l.ideas {
		ideas = append(ideas, *idea)
	}
	votes := make(map[string][]int64, len(l.votes))
	for user, ids := range l.votes {
		votes[user] = append([]int64(nil), ids...)
	}
	return ideas, votes
}

// Restore replaces the ledger content from a persisted snapshot.
func (l *Ledger) Restore(ideas []Idea, votes map[string][]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ideas = make([]*Idea, 0, len(ideas))
	l.lastID = 0
	for i := range ideas {
		idea := ideas[i]
		l.ideas = append(l.ideas, &idea)
		if idea.ID > l.lastID {
			l.lastID = idea.ID
		}
	}

	l.votes = map[string][]int64{}
	for user, ids := range votes {
		l.votes[user] = append([]int64(nil), ids...)
	}
}

func (l *Ledger) find(id int64) *Idea {
	for _, idea := range l.ideas {
		if idea.ID == id {
			return idea
		}
	}
	return nil
}
