package hub

import (
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// Event topics pushed over the realtime channel.
const (
	EventUserCount   = "user_count"
	EventChatMessage = "chat_message"
	EventVoteUpdate  = "vote_update"
	EventNewIdea     = "new_idea"
	EventStatsUpdate = "stats_update"
)

const subscriberBuffer = 64

// Event is one message on the realtime channel.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Subscriber is one connected realtime client. Events arrive on C; when the
// buffer is full further events are dropped for this subscriber only.
type Subscriber struct {
	ID uint64
	C  chan Event
}

// Hub fans events out to all subscribed clients. Delivery is best-effort and
// never blocks the publishing side: fan-out runs on a worker pool and slow
// subscribers lose events instead of stalling mutations.
type Hub struct {
	subs   *xsync.Map[uint64, *Subscriber]
	nextID atomic.Uint64
	pool   pond.Pool
	logger *zap.Logger
}

// New creates a Hub. The fan-out pool runs a single worker so every subscriber
// observes events in publish order.
func New(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   xsync.NewMap[uint64, *Subscriber](),
		pool:   pond.NewPool(1),
		logger: logger,
	}
}

// Subscribe registers a new client and returns its handle.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID: h.nextID.Add(1),
		C:  make(chan Event, subscriberBuffer),
	}
	h.subs.Store(sub.ID, sub)
	h.logger.Debug("Subscriber registered",
		zap.Uint64("id", sub.ID),
		zap.Int("connected", h.Count()))
	return sub
}

// Unsubscribe removes a client. The channel is left open: an in-flight fan-out
// may still hold the handle, and a send to a removed subscriber is harmless.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if _, ok := h.subs.LoadAndDelete(sub.ID); !ok {
		return
	}
	h.logger.Debug("Subscriber removed",
		zap.Uint64("id", sub.ID),
		zap.Int("connected", h.Count()))
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	return h.subs.Size()
}

// Broadcast delivers ev to every subscriber.
func (h *Hub) Broadcast(ev Event) {
	h.broadcast(ev, 0)
}

// BroadcastExcept delivers ev to every subscriber but the one with exceptID,
// used to relay chat messages without echoing them back to the sender.
func (h *Hub) BroadcastExcept(exceptID uint64, ev Event) {
	h.broadcast(ev, exceptID)
}

func (h *Hub) broadcast(ev Event, exceptID uint64) {
	h.pool.Submit(func() {
		dropped := 0
		h.subs.Range(func(id uint64, sub *Subscriber) bool {
			if id == exceptID {
				return true
			}
			select {
			case sub.C <- ev:
			default:
				dropped++
			}
			return true
		})
		if dropped > 0 {
			h.logger.Warn("Dropped event for slow subscribers",
				zap.String("type", ev.Type),
				zap.Int("dropped", dropped))
		}
	})
}
