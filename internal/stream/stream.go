package stream

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"
)

// Event is a single console feed entry pushed to connected clients.
type Event struct {
	Kind      string    `json:"kind"`
	UserID    string    `json:"user_id,omitempty"`
	Channel   string    `json:"channel"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Stream fan-outs console events to all active subscribers (SSE clients).
type Stream struct {
	mu       sync.RWMutex
	subs     map[int]chan Event
	next     int
	rnd      *rand.Rand
	channels []string
}

// New initialises an empty stream with the set of feed channels.
func New() *Stream {
	return &Stream{
		subs: make(map[int]chan Event),
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
		channels: []string{
			"BLACK_GLASS",
			"ORIENT/7",
			"RELAY-NORTH",
			"RELAY-SOUTH",
			"ARCHIVE_FEED",
			"VAULT_UPLINK",
		},
	}
}

// Subscribe registers a subscriber and returns a channel which will receive events.
// The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// ChannelForID deterministically maps a user identifier to one of the feed channels.
func (s *Stream) ChannelForID(id string) string {
	if len(s.channels) == 0 {
		return ""
	}
	hash := sha1.Sum([]byte(id))
	val := binary.BigEndian.Uint32(hash[:4])
	idx := int(val % uint32(len(s.channels)))
	return s.channels[idx]
}

// RandomChatterEvent creates an inert traffic line so the feed never looks idle.
// Chatter carries no user id and is never persisted.
func (s *Stream) RandomChatterEvent() Event {
	lines := []string{
		"handshake renewed",
		"relay checksum verified",
		"uplink window open",
		"carrier drift within tolerance",
		"archive sweep complete",
		"no anomalies on watch",
	}
	ch := s.channels[s.rnd.Intn(len(s.channels))]
	return Event{
		Kind:      "CHATTER",
		Channel:   ch,
		Message:   lines[s.rnd.Intn(len(lines))],
		Timestamp: time.Now().UTC(),
	}
}
