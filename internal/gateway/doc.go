// Package gateway runs the proposal-gateway HTTP server.
//
// # Overview
//
// The Gateway owns the session store, the model client, the conversation
// orchestrator, the turn broadcaster and the per-session draft documents,
// and exposes them over a single http.ServeMux:
//
//	type Gateway struct {
//	    config       *config.Config
//	    store        store.SessionStore
//	    model        conversation.Gateway
//	    conversation *conversation.Orchestrator
//	    broadcaster  *conversation.TurnBroadcaster
//	    drafts       *document.Drafts
//	    httpServer   *http.Server
//	}
//
// # HTTP API
//
// Health (never authenticated):
//
//	GET  /health                          - "OK"
//	GET  /health/ready                    - 200 when a model endpoint is set, else 503
//
// Conversation:
//
//	POST /api/conversation/message        - {message, session_id?} -> {session_id, raw_reply, timestamp}
//	POST /api/conversation/reset          - {session_id?} -> {session_id, message}
//	GET  /api/conversation/status         - {configured, message}
//	GET  /api/conversation/history/{id}   - {session_id, history}
//	GET  /api/conversation/events/{id}    - SSE stream of appended turns
//
// Editor:
//
//	POST /api/editor/message              - full pipeline, returns the updated document
//	GET  /api/editor/document/{id}        - current draft document
//
// When auth.jwt_secret is configured every /api/ route requires a bearer token.
//
// # Errors
//
// Orchestrator errors map to status codes:
//
//	conversation.ErrValidation          -> 400
//	conversation.ErrServiceUnavailable  -> 503
//	*conversation.GatewayError          -> 502, or 504 when the model never answered
//
// Error bodies are {"error": "...", "details": "..."}.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	err = gw.Run(ctx) // blocks until ctx is canceled
//
// Shutdown ends open event streams, drains the HTTP server with a 5 second
// budget and closes the store last.
package gateway
