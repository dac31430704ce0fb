package chat

import (
	"strings"
	"sync"
	"time"
)

const (
	// MaxMessages caps the retained history; older messages fall off first.
	MaxMessages = 200

	// SystemUser authors period announcements and other server messages.
	SystemUser = "Systém"

	maxUserLen = 50
	maxTextLen = 500
)

// Message is one chat entry.
type Message struct {
	User      string    `json:"user"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Log is a bounded append-only chat history with FIFO eviction.
type Log struct {
	mu   sync.Mutex
	msgs []Message
	max  int
	now  func() time.Time
}

// NewLog creates a Log retaining at most max messages (MaxMessages when <= 0).
func NewLog(max int) *Log {
	if max <= 0 {
		max = MaxMessages
	}
	return &Log{max: max, now: time.Now}
}

// Append validates, truncates and stores a message. It returns false when the
// user or text is empty after trimming; oversized fields are cut, not rejected.
func (l *Log) Append(user, text string) (Message, bool) {
	user = truncate(strings.TrimSpace(user), maxUserLen)
	text = truncate(strings.TrimSpace(text), maxTextLen)
	if user == "" || text == "" {
		return Message{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msg := Message{User: user, Text: text, Timestamp: l.now()}
	l.msgs = append(l.msgs, msg)
	if len(l.msgs) > l.max {
		l.msgs = l.msgs[len(l.msgs)-l.max:]
	}
	return msg, true
}

// Recent returns up to n most recent messages in chronological order.
func (l *Log) Recent(n int) []Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.msgs) {
		n = len(l.msgs)
	}
	out := make([]Message, n)
	copy(out, l.msgs[len(l.msgs)-n:])
	return out
}

// Messages returns a copy of the whole retained history.
func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Len returns the number of retained messages.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.msgs)
}

// Restore replaces the history from a persisted snapshot, keeping the cap.
func (l *Log) Restore(msgs []Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(msgs) > l.max {
		msgs = msgs[len(msgs)-l.max:]
	}
	l.msgs = make([]Message, len(msgs))
	copy(l.msgs, msgs)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
