// ABOUTME: Orchestrator runs one conversation turn: store user turn, call model, store reply
// ABOUTME: Also owns session reset, history lookup and model readiness status

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/2389/proposal-gateway/internal/model"
	"github.com/2389/proposal-gateway/internal/store"
)

// Gateway is what the orchestrator needs from the model adapter.
type Gateway interface {
	Configured() bool
	Send(ctx context.Context, prompt, sessionID string) (string, error)
}

// Reply is the result of a successful turn.
type Reply struct {
	SessionID string
	RawReply  string
	Timestamp time.Time
}

// Status describes whether the model gateway can take requests.
type Status struct {
	Configured bool
	Message    string
}

// Orchestrator coordinates the session store and the model gateway.
type Orchestrator struct {
	store       store.SessionStore
	gateway     Gateway
	broadcaster *TurnBroadcaster
	now         func() time.Time
	logger      *slog.Logger
}

// New creates an Orchestrator. broadcaster may be nil.
func New(st store.SessionStore, gw Gateway, broadcaster *TurnBroadcaster, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:       st,
		gateway:     gw,
		broadcaster: broadcaster,
		now:         time.Now,
		logger:      logger.With("component", "conversation"),
	}
}

// HandleMessage records the user turn, asks the model for a reply and records
// the assistant turn. The raw reply is returned untouched.
//
// Validation and configuration are checked before the store is touched. When
// the model call fails the user turn stays in history and no assistant turn is
// added.
func (o *Orchestrator) HandleMessage(ctx context.Context, text, sessionID string) (*Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrValidation
	}
	if !o.gateway.Configured() {
		return nil, ErrServiceUnavailable
	}

	sess, err := o.store.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	if err := o.appendTurn(ctx, sess.ID, store.RoleUser, text); err != nil {
		return nil, err
	}

	o.logger.Debug("user turn recorded", "session_id", sess.ID, "turns", len(sess.Turns)+1)

	raw, err := o.gateway.Send(ctx, text, sess.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotConfigured) {
			return nil, ErrServiceUnavailable
		}
		o.logger.Warn("model call failed", "session_id", sess.ID, "error", err)
		return nil, &GatewayError{Cause: err}
	}

	if err := o.appendTurn(ctx, sess.ID, store.RoleAssistant, raw); err != nil {
		return nil, err
	}

	return &Reply{
		SessionID: sess.ID,
		RawReply:  raw,
		Timestamp: o.now(),
	}, nil
}

func (o *Orchestrator) appendTurn(ctx context.Context, sessionID string, role store.Role, content string) error {
	turn := &store.Turn{Role: role, Content: content, Timestamp: o.now()}
	if err := o.store.Append(ctx, sessionID, turn); err != nil {
		return fmt.Errorf("recording %s turn: %w", role, err)
	}
	if o.broadcaster != nil {
		o.broadcaster.Publish(sessionID, turn)
	}
	return nil
}

// Reset discards sessionID (if any) and returns the ID of a fresh, empty
// session that the next HandleMessage call will continue.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) (string, error) {
	if sessionID != "" {
		if err := o.store.Reset(ctx, sessionID); err != nil {
			return "", fmt.Errorf("resetting session: %w", err)
		}
	}

	sess, err := o.store.GetOrCreate(ctx, "")
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	o.logger.Info("session reset", "old_session_id", sessionID, "session_id", sess.ID)
	return sess.ID, nil
}

// History returns the turns for sessionID. Unknown sessions yield an empty
// list rather than an error.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]*store.Turn, error) {
	turns, err := o.store.History(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return []*store.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return turns, nil
}

// Status reports model gateway readiness.
func (o *Orchestrator) Status() Status {
	if o.gateway.Configured() {
		return Status{Configured: true, Message: "AI service is ready"}
	}
	return Status{
		Configured: false,
		Message:    "AI service not configured. Please set MODEL_ENDPOINT and COOKIE",
	}
}

// Subscribe streams turns appended to sessionID until ctx is done.
// Returns nil when no broadcaster is attached.
func (o *Orchestrator) Subscribe(ctx context.Context, sessionID string) <-chan *TurnEvent {
	if o.broadcaster == nil {
		return nil
	}
	ch, _ := o.broadcaster.Subscribe(ctx, sessionID)
	return ch
}
