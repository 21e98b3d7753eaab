// ABOUTME: HTTP API handlers for the conversation and editor endpoints
// ABOUTME: Maps orchestrator errors to status codes and streams turn events over SSE

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/2389/proposal-gateway/internal/auth"
	"github.com/2389/proposal-gateway/internal/conversation"
	"github.com/2389/proposal-gateway/internal/document"
	"github.com/2389/proposal-gateway/internal/model"
	"github.com/2389/proposal-gateway/internal/store"
)

// maxRequestBytes caps JSON request bodies.
const maxRequestBytes = 1 << 20

// MessageRequest is the JSON request body for the message endpoints.
// The web client sends the session as sessionId; both spellings are accepted.
type MessageRequest struct {
	Message        string `json:"message"`
	SessionID      string `json:"session_id,omitempty"`
	SessionIDCamel string `json:"sessionId,omitempty"`
}

// sessionID returns the session from whichever key the client used.
func (r *MessageRequest) sessionID() string {
	return firstNonEmpty(r.SessionID, r.SessionIDCamel)
}

// MessageResponse is the JSON response for POST /api/conversation/message.
type MessageResponse struct {
	SessionID string `json:"session_id"`
	RawReply  string `json:"raw_reply"`
	Timestamp string `json:"timestamp"`
}

// ResetRequest is the JSON request body for POST /api/conversation/reset.
type ResetRequest struct {
	SessionID      string `json:"session_id,omitempty"`
	SessionIDCamel string `json:"sessionId,omitempty"`
}

func (r *ResetRequest) sessionID() string {
	return firstNonEmpty(r.SessionID, r.SessionIDCamel)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// ResetResponse is the JSON response for POST /api/conversation/reset.
type ResetResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// StatusResponse is the JSON response for GET /api/conversation/status.
type StatusResponse struct {
	Configured bool   `json:"configured"`
	Message    string `json:"message"`
}

// TurnResponse is a single history entry.
type TurnResponse struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// HistoryResponse is the JSON response for GET /api/conversation/history/{id}.
type HistoryResponse struct {
	SessionID string          `json:"session_id"`
	History   []*TurnResponse `json:"history"`
}

// EditorMessageResponse is the JSON response for POST /api/editor/message.
// Fragment holds the formatted HTML appended by this reply, if any.
type EditorMessageResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Fragment  string `json:"fragment,omitempty"`
	Document  string `json:"document"`
}

// DocumentResponse is the JSON response for GET /api/editor/document/{id}.
type DocumentResponse struct {
	SessionID string `json:"session_id"`
	Document  string `json:"document"`
}

// ErrorResponse is the JSON body for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// handleMessage handles POST /api/conversation/message.
func (g *Gateway) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseMessageRequest(w, r)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := g.conversation.HandleMessage(r.Context(), req.Message, req.sessionID())
	if err != nil {
		g.writeConversationError(w, r, err)
		return
	}

	g.writeJSON(w, http.StatusOK, MessageResponse{
		SessionID: reply.SessionID,
		RawReply:  reply.RawReply,
		Timestamp: reply.Timestamp.UTC().Format(time.RFC3339),
	})
}

// handleReset handles POST /api/conversation/reset.
// An empty body resets nothing and just hands out a fresh session.
func (g *Gateway) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ResetRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sessionID := req.sessionID()
	newID, err := g.conversation.Reset(r.Context(), sessionID)
	if err != nil {
		g.requestLogger(r).Error("failed to reset conversation", "session_id", sessionID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if sessionID != "" {
		g.drafts.Reset(sessionID)
	}

	g.writeJSON(w, http.StatusOK, ResetResponse{
		SessionID: newID,
		Message:   "Conversation reset successfully",
	})
}

// handleStatus handles GET /api/conversation/status.
func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := g.conversation.Status()
	g.writeJSON(w, http.StatusOK, StatusResponse{
		Configured: status.Configured,
		Message:    status.Message,
	})
}

// handleHistory handles GET /api/conversation/history/{id}.
func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/conversation/history/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		g.sendJSONError(w, http.StatusBadRequest, "session ID required")
		return
	}

	turns, err := g.conversation.History(r.Context(), sessionID)
	if err != nil {
		g.requestLogger(r).Error("failed to load history", "session_id", sessionID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	history := make([]*TurnResponse, 0, len(turns))
	for _, t := range turns {
		history = append(history, turnToResponse(t))
	}

	g.writeJSON(w, http.StatusOK, HistoryResponse{
		SessionID: sessionID,
		History:   history,
	})
}

// handleEvents handles GET /api/conversation/events/{id}.
// Streams every turn appended to the session until the client disconnects
// or the gateway shuts down.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/conversation/events/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		g.sendJSONError(w, http.StatusBadRequest, "session ID required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	events := g.conversation.Subscribe(ctx, sessionID)
	if events == nil {
		g.sendJSONError(w, http.StatusServiceUnavailable, "event streaming unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	g.writeSSEEvent(w, "started", map[string]string{"session_id": sessionID})
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				g.writeSSEEvent(w, "done", map[string]string{"session_id": sessionID})
				flusher.Flush()
				return
			}
			g.writeSSEEvent(w, "turn", turnToResponse(event.Turn))
			flusher.Flush()
		}
	}
}

// handleEditorMessage handles POST /api/editor/message.
//
// Runs the whole pipeline server-side:
//  1. Conversation turn via the orchestrator
//  2. Extract the editor fragment from the raw reply
//  3. Format the fragment to HTML
//  4. Append it to the session's draft document
func (g *Gateway) handleEditorMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseMessageRequest(w, r)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := g.conversation.HandleMessage(r.Context(), req.Message, req.sessionID())
	if err != nil {
		g.writeConversationError(w, r, err)
		return
	}

	ext, doc := g.drafts.Apply(reply.SessionID, reply.RawReply)

	resp := EditorMessageResponse{
		SessionID: reply.SessionID,
		Message:   ext.Message,
		Document:  doc,
	}
	if ext.HasFragment() {
		resp.Fragment = document.Format(ext.Fragment)
	}

	g.writeJSON(w, http.StatusOK, resp)
}

// handleEditorDocument handles GET /api/editor/document/{id}.
func (g *Gateway) handleEditorDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/editor/document/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		g.sendJSONError(w, http.StatusBadRequest, "session ID required")
		return
	}

	g.writeJSON(w, http.StatusOK, DocumentResponse{
		SessionID: sessionID,
		Document:  g.drafts.Get(sessionID),
	})
}

// parseMessageRequest decodes a MessageRequest from the request body.
// An empty message is left to the orchestrator so validation stays in one place.
func parseMessageRequest(w http.ResponseWriter, r *http.Request) (*MessageRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	return &req, nil
}

// requestLogger tags the gateway logger with the authenticated caller, if any.
func (g *Gateway) requestLogger(r *http.Request) *slog.Logger {
	if p := auth.FromContext(r.Context()); p != nil {
		return g.logger.With("principal", p.ID)
	}
	return g.logger
}

// writeConversationError maps orchestrator errors onto HTTP responses.
func (g *Gateway) writeConversationError(w http.ResponseWriter, r *http.Request, err error) {
	var gwErr *conversation.GatewayError

	switch {
	case errors.Is(err, conversation.ErrValidation):
		g.sendJSONError(w, http.StatusBadRequest, "Message is required")
	case errors.Is(err, conversation.ErrServiceUnavailable):
		g.writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "AI service not configured",
			Details: "Please set MODEL_ENDPOINT and COOKIE environment variables",
		})
	case errors.As(err, &gwErr):
		status := http.StatusBadGateway
		if errors.Is(gwErr, model.ErrNoResponse) {
			status = http.StatusGatewayTimeout
		}
		g.requestLogger(r).Warn("model request failed", "status", status, "error", gwErr.Cause)
		g.writeJSON(w, status, ErrorResponse{
			Error:   "Failed to process message",
			Details: gwErr.Cause.Error(),
		})
	default:
		g.requestLogger(r).Error("conversation request failed", "error", err)
		g.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to process message",
			Details: err.Error(),
		})
	}
}

func turnToResponse(t *store.Turn) *TurnResponse {
	return &TurnResponse{
		Role:      string(t.Role),
		Content:   t.Content,
		Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
	}
}

// writeSSEEvent writes a single SSE event to the response writer.
func (g *Gateway) writeSSEEvent(w http.ResponseWriter, event string, data interface{}) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		g.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

// writeJSON writes v as a JSON response with the given status.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	g.writeJSON(w, status, ErrorResponse{Error: message})
}
