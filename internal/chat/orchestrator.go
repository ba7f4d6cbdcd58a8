package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"OpenCodeWeb/internal/opencode"
	"OpenCodeWeb/internal/session"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoActiveSession is returned by SendMessage before any session exists
var ErrNoActiveSession = errors.New("No active session")

// Remote is the part of the opencode client the orchestrator drives
type Remote interface {
	CreateSession(ctx context.Context) (opencode.SessionPayload, error)
	SendMessage(ctx context.Context, sessionID, content string, opts ...opencode.SendOption) (opencode.MessagePayload, error)
	ListMessages(ctx context.Context, sessionID string) (opencode.MessageListPayload, error)
}

// Orchestrator owns one session slot and its message list. Instances share
// nothing, so each view (terminal, websocket connection) gets its own.
type Orchestrator struct {
	remote     Remote
	logger     *slog.Logger
	tracer     trace.Tracer
	sendOpts   []opencode.SendOption
	dropFailed bool
	now        func() time.Time

	mu        sync.Mutex
	session   *session.Session
	messages  []session.Message
	inflight  int
	listeners []func(session.State)

	notifyMu sync.Mutex

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithTracer sets the tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = tracer }
}

// WithSendOptions applies provider/model overrides to every SendMessage
func WithSendOptions(opts ...opencode.SendOption) Option {
	return func(o *Orchestrator) { o.sendOpts = append(o.sendOpts, opts...) }
}

// WithDropFailed removes a user message whose send failed instead of
// keeping it marked as failed.
func WithDropFailed() Option {
	return func(o *Orchestrator) { o.dropFailed = true }
}

// New creates an orchestrator with no session
func New(remote Remote, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		remote:   remote,
		logger:   slog.Default(),
		tracer:   otel.Tracer("OpenCodeWeb/internal/chat"),
		now:      time.Now,
		messages: []session.Message{},
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnChange registers fn to receive a snapshot after every state change.
// fn must not call mutating orchestrator methods.
func (o *Orchestrator) OnChange(fn func(session.State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

// Snapshot returns a copy of the current state
func (o *Orchestrator) Snapshot() session.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() session.State {
	state := session.State{
		Messages: make([]session.Message, len(o.messages)),
		Loading:  o.inflight > 0,
	}
	copy(state.Messages, o.messages)
	if o.session != nil {
		sess := *o.session
		state.Session = &sess
	}
	return state
}

// Session returns the active session, if any
func (o *Orchestrator) Session() (session.Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return session.Session{}, false
	}
	return *o.session, true
}

// Messages returns a copy of the message list
func (o *Orchestrator) Messages() []session.Message {
	return o.Snapshot().Messages
}

// Loading reports whether any operation is in flight. It is advisory: the
// orchestrator does not refuse overlapping calls.
func (o *Orchestrator) Loading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight > 0
}

func (o *Orchestrator) changed() {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	state := o.snapshotLocked()
	listeners := append([]func(session.State){}, o.listeners...)
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func (o *Orchestrator) begin() {
	o.mu.Lock()
	o.inflight++
	o.mu.Unlock()
	o.changed()
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.inflight--
	o.mu.Unlock()
	o.changed()
}

// CreateSession replaces the active session with a new one from the server.
// The previous session's messages are discarded and a background load of the
// new session starts.
func (o *Orchestrator) CreateSession(ctx context.Context, title string) (session.Session, error) {
	ctx, span := o.tracer.Start(ctx, "chat.create_session")
	defer span.End()

	o.begin()
	defer o.end()

	payload, err := o.remote.CreateSession(ctx)
	if err != nil {
		o.logger.Error("failed to create session", "error", err)
		return session.Session{}, fail(span, err)
	}

	now := o.now()
	remote := gjson.ParseBytes(payload)
	sess := session.Session{
		ID:        remote.Get("id").String(),
		Title:     title,
		CreatedAt: now,
	}
	if sess.ID == "" {
		sess.ID = fmt.Sprintf("session-%d", now.UnixMilli())
	}
	if sess.Title == "" {
		sess.Title = remote.Get("title").String()
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))

	o.mu.Lock()
	o.session = &sess
	o.messages = []session.Message{}
	o.mu.Unlock()
	o.changed()

	o.logger.Info("created new session", "session_id", sess.ID, "title", sess.Title)

	o.wg.Add(1)
	go o.watch(sess.ID)

	return sess, nil
}

// watch loads the messages of a newly activated session. Its failure is only logged.
func (o *Orchestrator) watch(sessionID string) {
	defer o.wg.Done()
	if err := o.LoadMessages(o.baseCtx, sessionID); err != nil {
		o.logger.Error("failed to load messages", "session_id", sessionID, "error", err)
	}
}

// SendMessage appends the user message as pending, sends it, and appends the
// assistant reply. On failure the user message is marked failed (or dropped
// with WithDropFailed) and the error is returned.
func (o *Orchestrator) SendMessage(ctx context.Context, content string) (session.Message, error) {
	ctx, span := o.tracer.Start(ctx, "chat.send_message")
	defer span.End()

	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		return session.Message{}, fail(span, ErrNoActiveSession)
	}
	sessionID := o.session.ID
	user := session.Message{
		ID:        "user-" + uuid.NewString(),
		Role:      session.RoleUser,
		Content:   content,
		Timestamp: o.now(),
		Status:    session.StatusPending,
	}
	o.messages = append(o.messages, user)
	o.inflight++
	o.mu.Unlock()
	o.changed()
	defer o.end()

	span.SetAttributes(attribute.String("session.id", sessionID))

	payload, err := o.remote.SendMessage(ctx, sessionID, content, o.sendOpts...)
	if err != nil {
		o.settle(user.ID, session.StatusFailed)
		o.logger.Error("failed to send message", "session_id", sessionID, "error", err)
		return session.Message{}, fail(span, err)
	}

	assistant := session.Message{
		ID:        "assistant-" + uuid.NewString(),
		Role:      session.RoleAssistant,
		Content:   assistantContent(payload),
		Timestamp: o.now(),
		Status:    session.StatusConfirmed,
	}

	o.mu.Lock()
	o.settleLocked(user.ID, session.StatusConfirmed)
	if o.session != nil && o.session.ID == sessionID {
		o.messages = append(o.messages, assistant)
	}
	o.mu.Unlock()
	o.changed()

	return assistant, nil
}

func (o *Orchestrator) settle(id string, status session.Status) {
	o.mu.Lock()
	o.settleLocked(id, status)
	o.mu.Unlock()
	o.changed()
}

func (o *Orchestrator) settleLocked(id string, status session.Status) {
	for i := range o.messages {
		if o.messages[i].ID != id {
			continue
		}
		if status == session.StatusFailed && o.dropFailed {
			o.messages = append(o.messages[:i], o.messages[i+1:]...)
			return
		}
		o.messages[i].Status = status
		return
	}
}

// LoadMessages replaces the message list with the server's copy for sessionID.
// A result for a session that is no longer active is discarded. Local messages
// appended after the load started, or still pending, stay at the end of the list.
func (o *Orchestrator) LoadMessages(ctx context.Context, sessionID string) error {
	ctx, span := o.tracer.Start(ctx, "chat.load_messages",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	o.mu.Lock()
	o.inflight++
	before := make(map[string]struct{}, len(o.messages))
	for _, msg := range o.messages {
		before[msg.ID] = struct{}{}
	}
	o.mu.Unlock()
	o.changed()
	defer o.end()

	payload, err := o.remote.ListMessages(ctx, sessionID)
	if err != nil {
		return fail(span, err)
	}

	loaded := NormalizeMessages(payload, o.now())

	o.mu.Lock()
	if o.session == nil || o.session.ID != sessionID {
		o.mu.Unlock()
		o.logger.Debug("discarding messages for inactive session", "session_id", sessionID)
		return nil
	}
	for _, msg := range o.messages {
		if _, seen := before[msg.ID]; !seen || msg.Status == session.StatusPending {
			loaded = append(loaded, msg)
		}
	}
	o.messages = loaded
	o.mu.Unlock()
	o.changed()

	o.logger.Debug("loaded messages", "session_id", sessionID, "count", len(loaded))
	return nil
}

// Wait blocks until background loads have finished
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels background loads and waits for them
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// formattedError carries the cause but prints the user-facing text
type formattedError struct {
	err error
}

func (e *formattedError) Error() string { return opencode.HandleError(e.err) }
func (e *formattedError) Unwrap() error { return e.err }

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errors.Is(err, ErrNoActiveSession) {
		return err
	}
	return &formattedError{err: err}
}
