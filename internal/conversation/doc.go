// Package conversation runs conversation turns against the model gateway.
//
// # Orchestrator
//
// HandleMessage is the server-side half of a turn:
//
//  1. Reject empty or whitespace-only input (ErrValidation)
//  2. Reject when the gateway is unconfigured (ErrServiceUnavailable),
//     before any session is created
//  3. Resolve or create the session
//  4. Record the user turn
//  5. Send the prompt with the session ID
//  6. Record the assistant turn and return the raw reply
//
// A failed model call returns *GatewayError wrapping the model error. The user
// turn remains in history; no assistant turn is written.
//
// Reset discards a session and returns the ID of a fresh one. History returns
// an empty list for unknown sessions.
//
// Concurrent HandleMessage calls on one session are not serialized. Turns land
// in the order the store receives them.
//
// # Turn Broadcasting
//
// TurnBroadcaster fans out each stored turn to subscribers of its session.
// Publishing never blocks; a subscriber whose buffer is full misses events.
// Subscriptions end when their context is cancelled or the broadcaster closes.
package conversation
