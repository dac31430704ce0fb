package chat

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendValidation(t *testing.T) {
	l := NewLog(10)

	_, ok := l.Append("", "hello")
	assert.False(t, ok)

	_, ok = l.Append("alice", "   ")
	assert.False(t, ok)

	msg, ok := l.Append("  alice  ", "  hello  ")
	require.True(t, ok)
	assert.Equal(t, "alice", msg.User)
	assert.Equal(t, "hello", msg.Text)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestAppendTruncatesOversizedFields(t *testing.T) {
	l := NewLog(10)

	msg, ok := l.Append(strings.Repeat("u", 80), strings.Repeat("x", 600))
	require.True(t, ok)
	assert.Len(t, []rune(msg.User), 50)
	assert.Len(t, []rune(msg.Text), 500)
}

func TestFIFOEviction(t *testing.T) {
	l := NewLog(200)

	for i := 0; i < 205; i++ {
		_, ok := l.Append("alice", fmt.Sprintf("message %d", i))
		require.True(t, ok)
	}

	msgs := l.Messages()
	require.Len(t, msgs, 200)
	assert.Equal(t, "message 5", msgs[0].Text, "oldest messages evicted first")
	assert.Equal(t, "message 204", msgs[199].Text)
	assert.Equal(t, 200, l.Len())
}

func TestRecentChronological(t *testing.T) {
	l := NewLog(200)
	for i := 0; i < 60; i++ {
		l.Append("alice", fmt.Sprintf("message %d", i))
	}

	recent := l.Recent(50)
	require.Len(t, recent, 50)
	assert.Equal(t, "message 10", recent[0].Text)
	assert.Equal(t, "message 59", recent[49].Text)

	// asking for more than exists returns everything
	all := l.Recent(1000)
	assert.Len(t, all, 60)
}

func TestRestoreKeepsCap(t *testing.T) {
	l := NewLog(3)

	msgs := make([]Message, 5)
	for i := range msgs {
		msgs[i] = Message{User: "alice", Text: fmt.Sprintf("message %d", i)}
	}
	l.Restore(msgs)

	got := l.Messages()
	require.Len(t, got, 3)
	assert.Equal(t, "message 2", got[0].Text)
}
