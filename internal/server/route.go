package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"OpenCodeWeb/internal/opencode"
	"OpenCodeWeb/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ActionCreateSession  = "create_session"
	ActionSendMessage    = "send_message"
	ActionGetMessages    = "get_messages"
	ActionGetSessions    = "get_sessions"
	ActionTestConnection = "test_connection"

	// journal-only labels
	actionProbe   = "probe"
	actionInvalid = "invalid_body"
)

// Remote is the full opencode surface exposed over HTTP
type Remote interface {
	CreateSession(ctx context.Context) (opencode.SessionPayload, error)
	SendMessage(ctx context.Context, sessionID, content string, opts ...opencode.SendOption) (opencode.MessagePayload, error)
	ListMessages(ctx context.Context, sessionID string) (opencode.MessageListPayload, error)
	ListSessions(ctx context.Context) (opencode.SessionListPayload, error)
	GetAppInfo(ctx context.Context) (opencode.AppInfoPayload, error)
}

// Recorder stores one entry per handled action
type Recorder interface {
	Record(ctx context.Context, e telemetry.Entry) error
}

// ValidationError is a request the handler refuses before calling the server
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type actionRequest struct {
	Action    string  `json:"action"`
	SessionID string  `json:"sessionId"`
	Content   *string `json:"content"`
}

type errorBody struct {
	Error string `json:"error"`
}

type connectionBody struct {
	Connected bool            `json:"connected"`
	App       json.RawMessage `json:"app,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// RouteHandler proxies opencode operations behind a single action endpoint
type RouteHandler struct {
	remote  Remote
	journal Recorder
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewRouteHandler creates a route handler. journal may be nil.
func NewRouteHandler(remote Remote, journal Recorder, logger *slog.Logger) *RouteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteHandler{
		remote:  remote,
		journal: journal,
		logger:  logger,
		tracer:  otel.Tracer("OpenCodeWeb/internal/server"),
	}
}

// Register registers the endpoint on mux
func (h *RouteHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/opencode", h.HandlePost)
	mux.HandleFunc("GET /api/opencode", h.HandleGet)
}

// HandlePost handles POST /api/opencode
func (h *RouteHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		verr := &ValidationError{Message: "Invalid request body"}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Message})
		h.record(r.Context(), actionRequest{Action: actionInvalid}, http.StatusBadRequest, time.Since(start), verr)
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "route.action",
		trace.WithAttributes(
			attribute.String("route.action", req.Action),
			attribute.String("session.id", req.SessionID),
		))
	defer span.End()

	status, body, err := h.dispatch(ctx, req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			status = http.StatusBadRequest
			body = errorBody{Error: verr.Message}
		} else {
			h.logger.Error("opencode API error", "action", req.Action, "error", err)
			status = http.StatusInternalServerError
			body = errorBody{Error: opencode.HandleError(err)}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	writeJSON(w, status, body)
	h.record(ctx, req, status, time.Since(start), err)
}

func (h *RouteHandler) dispatch(ctx context.Context, req actionRequest) (int, any, error) {
	switch req.Action {
	case ActionCreateSession:
		sess, err := h.remote.CreateSession(ctx)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, sess, nil

	case ActionSendMessage:
		if req.SessionID == "" {
			return 0, nil, &ValidationError{Message: "Session ID required"}
		}
		if req.Content == nil {
			return 0, nil, &ValidationError{Message: "Content required"}
		}
		if _, err := h.remote.SendMessage(ctx, req.SessionID, *req.Content); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]bool{"success": true}, nil

	case ActionGetMessages:
		if req.SessionID == "" {
			return 0, nil, &ValidationError{Message: "Session ID required"}
		}
		messages, err := h.remote.ListMessages(ctx, req.SessionID)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, messages, nil

	case ActionGetSessions:
		sessions, err := h.remote.ListSessions(ctx)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, sessions, nil

	case ActionTestConnection:
		app, err := h.remote.GetAppInfo(ctx)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, connectionBody{Connected: true, App: app}, nil

	default:
		return 0, nil, &ValidationError{Message: "Invalid action"}
	}
}

// HandleGet handles GET /api/opencode, a connectivity probe
func (h *RouteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := h.tracer.Start(r.Context(), "route.probe")
	defer span.End()

	app, err := h.remote.GetAppInfo(ctx)
	status := http.StatusOK
	body := connectionBody{Connected: true, App: app}
	if err != nil {
		h.logger.Error("opencode connection test failed", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		status = http.StatusInternalServerError
		body = connectionBody{Connected: false, Error: opencode.HandleError(err)}
	}

	writeJSON(w, status, body)
	h.record(ctx, actionRequest{Action: actionProbe}, status, time.Since(start), err)
}

func (h *RouteHandler) record(ctx context.Context, req actionRequest, status int, d time.Duration, err error) {
	if h.journal == nil {
		return
	}
	entry := telemetry.Entry{
		Action:    req.Action,
		SessionID: req.SessionID,
		Status:    status,
		Duration:  d,
	}
	if err != nil {
		entry.Error = opencode.HandleError(err)
	}
	if err := h.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		h.logger.Warn("failed to record request", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
