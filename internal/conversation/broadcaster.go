// ABOUTME: In-memory fan-out of stored turns to listeners of a session
// ABOUTME: Lets clients observe history changes without polling

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/proposal-gateway/internal/store"
)

// subscriberBufferSize is how many turns a subscriber may fall behind before
// new turns are dropped for it. One message exchange publishes two turns.
const subscriberBufferSize = 64

// TurnEvent is a turn that was just appended to a session.
type TurnEvent struct {
	SessionID string
	Turn      *store.Turn
}

// TurnBroadcaster provides pub/sub for appended turns keyed by session ID.
//
// Events are published only after the store accepted the turn, so a listener
// never sees a turn that History would not return. Delivery is best-effort:
// a listener that stops draining (a stalled watch client, say) keeps the
// oldest buffered turns and misses newer ones, and must reload History to
// catch up. A reset session gets no event; its listeners simply go quiet,
// since the replacement session has a different ID.
type TurnBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan *TurnEvent // sessionID -> subID -> ch
	closed      bool
	logger      *slog.Logger
}

// NewTurnBroadcaster creates a broadcaster. Pass nil logger for default.
func NewTurnBroadcaster(logger *slog.Logger) *TurnBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnBroadcaster{
		subscribers: make(map[string]map[string]chan *TurnEvent),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers for turns on sessionID. The returned channel is closed
// on Unsubscribe, on ctx cancellation or on Close.
func (b *TurnBroadcaster) Subscribe(ctx context.Context, sessionID string) (<-chan *TurnEvent, string) {
	subID := uuid.New().String()
	ch := make(chan *TurnEvent, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	if _, ok := b.subscribers[sessionID]; !ok {
		b.subscribers[sessionID] = make(map[string]chan *TurnEvent)
	}
	b.subscribers[sessionID][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "session_id", sessionID, "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(sessionID, subID)
	}()

	return ch, subID
}

// Publish delivers a turn to every subscriber of sessionID, in call order.
// Non-blocking: a subscriber with a full buffer misses this turn, while
// turns already queued for it are kept.
func (b *TurnBroadcaster) Publish(sessionID string, turn *store.Turn) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.subscribers[sessionID]
	if len(subs) == 0 {
		return
	}

	event := &TurnEvent{SessionID: sessionID, Turn: turn}
	for subID, ch := range subs {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropped turn for slow subscriber",
				"session_id", sessionID,
				"sub_id", subID)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *TurnBroadcaster) Unsubscribe(sessionID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[sessionID]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(b.subscribers, sessionID)
	}

	b.logger.Debug("subscriber removed", "session_id", sessionID, "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *TurnBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sessionID, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, sessionID)
	}
	b.closed = true

	b.logger.Debug("broadcaster closed")
}
