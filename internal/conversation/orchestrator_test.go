// ABOUTME: Tests for the conversation Orchestrator
// ABOUTME: Verifies turn recording, failure classification, reset and history semantics

package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/proposal-gateway/internal/model"
	"github.com/2389/proposal-gateway/internal/store"
)

// fakeGateway implements Gateway for testing
type fakeGateway struct {
	mu         sync.Mutex
	configured bool
	reply      string
	err        error
	calls      int
	lastPrompt string
	lastID     string
}

func (f *fakeGateway) Configured() bool { return f.configured }

func (f *fakeGateway) Send(ctx context.Context, prompt, sessionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPrompt = prompt
	f.lastID = sessionID
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// countingStore wraps a SessionStore and counts session creations.
type countingStore struct {
	store.SessionStore
	created int
}

func (c *countingStore) GetOrCreate(ctx context.Context, id string) (*store.Session, error) {
	c.created++
	return c.SessionStore.GetOrCreate(ctx, id)
}

func newTestOrchestrator(t *testing.T, gw *fakeGateway) (*Orchestrator, *countingStore) {
	t.Helper()
	st := &countingStore{SessionStore: store.NewMemoryStore()}
	return New(st, gw, nil, nil), st
}

func TestHandleMessage_NewSession(t *testing.T) {
	gw := &fakeGateway{configured: true, reply: "Great idea! Tell me more."}
	o, _ := newTestOrchestrator(t, gw)
	ctx := context.Background()

	reply, err := o.HandleMessage(ctx, "I want to build a fraud-detection model", "")
	require.NoError(t, err)

	assert.NotEmpty(t, reply.SessionID)
	assert.Equal(t, "Great idea! Tell me more.", reply.RawReply)
	assert.False(t, reply.Timestamp.IsZero())
	assert.Equal(t, reply.SessionID, gw.lastID, "session id must be propagated to the model")

	history, err := o.History(ctx, reply.SessionID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, store.RoleUser, history[0].Role)
	assert.Equal(t, "I want to build a fraud-detection model", history[0].Content)
	assert.Equal(t, store.RoleAssistant, history[1].Role)
	assert.Equal(t, "Great idea! Tell me more.", history[1].Content)
}

func TestHandleMessage_ContinuesExistingSession(t *testing.T) {
	gw := &fakeGateway{configured: true, reply: "ok"}
	o, _ := newTestOrchestrator(t, gw)
	ctx := context.Background()

	first, err := o.HandleMessage(ctx, "one", "")
	require.NoError(t, err)
	second, err := o.HandleMessage(ctx, "two", first.SessionID)
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	history, err := o.History(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestHandleMessage_RawReplyUntouched(t *testing.T) {
	raw := "Great idea! [UPDATE EDITOR]# General\n**Goal:** detect fraud[/UPDATE EDITOR] Next."
	gw := &fakeGateway{configured: true, reply: raw}
	o, _ := newTestOrchestrator(t, gw)

	reply, err := o.HandleMessage(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, raw, reply.RawReply)
}

func TestHandleMessage_Validation(t *testing.T) {
	gw := &fakeGateway{configured: true, reply: "ok"}
	o, st := newTestOrchestrator(t, gw)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := o.HandleMessage(context.Background(), text, "")
		assert.ErrorIs(t, err, ErrValidation, "input %q", text)
	}

	assert.Zero(t, gw.calls)
	assert.Zero(t, st.created)
}

func TestHandleMessage_NotConfigured(t *testing.T) {
	gw := &fakeGateway{configured: false}
	o, st := newTestOrchestrator(t, gw)

	_, err := o.HandleMessage(context.Background(), "hello", "")

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Zero(t, st.created, "no session may be created when the gateway is unconfigured")
	assert.Zero(t, gw.calls)
}

func TestHandleMessage_GatewayNotConfiguredErrorMapsToUnavailable(t *testing.T) {
	gw := &fakeGateway{configured: true, err: model.ErrNotConfigured}
	o, _ := newTestOrchestrator(t, gw)

	_, err := o.HandleMessage(context.Background(), "hello", "")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestHandleMessage_GatewayFailure(t *testing.T) {
	causes := []error{
		&model.RemoteError{StatusCode: 401, Detail: "token expired"},
		model.ErrNoResponse,
		model.ErrMalformedResponse,
	}

	for _, cause := range causes {
		t.Run(cause.Error(), func(t *testing.T) {
			gw := &fakeGateway{configured: true, reply: "ok"}
			o, _ := newTestOrchestrator(t, gw)
			ctx := context.Background()

			first, err := o.HandleMessage(ctx, "first", "")
			require.NoError(t, err)

			gw.err = cause
			_, err = o.HandleMessage(ctx, "second", first.SessionID)

			var gwErr *GatewayError
			require.True(t, errors.As(err, &gwErr))
			assert.ErrorIs(t, err, cause)
			assert.Contains(t, err.Error(), cause.Error())

			history, err := o.History(ctx, first.SessionID)
			require.NoError(t, err)
			require.Len(t, history, 3, "failed turn keeps the user message only")
			assert.Equal(t, store.RoleUser, history[2].Role)
			assert.Equal(t, "second", history[2].Content)
		})
	}
}

func TestReset_MintsFreshSession(t *testing.T) {
	gw := &fakeGateway{configured: true, reply: "ok"}
	o, _ := newTestOrchestrator(t, gw)
	ctx := context.Background()

	first, err := o.HandleMessage(ctx, "hello", "")
	require.NoError(t, err)

	newID, err := o.Reset(ctx, first.SessionID)
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, newID)

	history, err := o.History(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Empty(t, history)

	next, err := o.HandleMessage(ctx, "again", newID)
	require.NoError(t, err)
	assert.Equal(t, newID, next.SessionID, "the id returned by Reset must be usable")

	resubmitted, err := o.HandleMessage(ctx, "old id", first.SessionID)
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, resubmitted.SessionID)
	history, err = o.History(ctx, resubmitted.SessionID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestReset_WithoutSessionID(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeGateway{})

	id, err := o.Reset(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestHistory_UnknownSessionIsEmpty(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeGateway{})

	history, err := o.History(context.Background(), "conv_unknown")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestStatus(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeGateway{configured: true})
	assert.True(t, o.Status().Configured)
	assert.Equal(t, "AI service is ready", o.Status().Message)

	o, _ = newTestOrchestrator(t, &fakeGateway{configured: false})
	assert.False(t, o.Status().Configured)
	assert.Contains(t, o.Status().Message, "not configured")
}

func TestHandleMessage_PublishesTurns(t *testing.T) {
	b := NewTurnBroadcaster(nil)
	defer b.Close()

	st := store.NewMemoryStore()
	gw := &fakeGateway{configured: true, reply: "reply"}
	o := New(st, gw, b, nil)
	ctx := context.Background()

	first, err := o.HandleMessage(ctx, "hello", "")
	require.NoError(t, err)

	events := o.Subscribe(t.Context(), first.SessionID)
	require.NotNil(t, events)

	_, err = o.HandleMessage(ctx, "second", first.SessionID)
	require.NoError(t, err)

	var got []string
	for range 2 {
		select {
		case ev := <-events:
			got = append(got, string(ev.Turn.Role)+":"+ev.Turn.Content)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for turn event")
		}
	}
	assert.Equal(t, []string{"user:second", "assistant:reply"}, got)
}

func TestSubscribe_NoBroadcaster(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeGateway{})
	assert.Nil(t, o.Subscribe(t.Context(), "conv_1"))
}
