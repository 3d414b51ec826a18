package handler

import (
	"context"
	"sync"
	"time"

	"librarian/internal/domain"
	"librarian/internal/service"
	"librarian/internal/session"
	"librarian/internal/tracker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Messenger is the part of the chat transport the router calls directly
type Messenger interface {
	Edit(ctx context.Context, ref domain.MessageRef, text string) error
	Answer(ctx context.Context, callbackID, text string, alert bool) error
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Timers cancels a user's pending deletions
type Timers interface {
	CancelOwner(owner int64) int
}

// Document is an uploaded file
type Document struct {
	FileID string
	Name   string
	Size   int64
}

// Callback is a button press
type Callback struct {
	ID   string
	Data string
}

// Event is one inbound update, stripped of transport details
type Event struct {
	User   domain.BotUser
	ChatID int64
	// Message is the inbound message, or the message carrying the pressed button
	Message     domain.MessageRef
	MessageText string
	Text        string
	Document    *Document
	Callback    *Callback
}

// Handler manages all bot interactions
type Handler struct {
	auth      *service.AuthService
	library   *service.LibraryService
	users     *service.UserService
	sessions  *session.Store
	tracker   *tracker.Tracker
	timers    Timers
	messenger Messenger
	logger    *zap.Logger

	// Turns of one user never interleave
	locksMu sync.Mutex
	locks   map[int64]*userLock
}

// NewHandler creates a new handler instance
func NewHandler(
	auth *service.AuthService,
	library *service.LibraryService,
	users *service.UserService,
	sessions *session.Store,
	tr *tracker.Tracker,
	timers Timers,
	messenger Messenger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		auth:      auth,
		library:   library,
		users:     users,
		sessions:  sessions,
		tracker:   tr,
		timers:    timers,
		messenger: messenger,
		logger:    logger,
		locks:     make(map[int64]*userLock),
	}
}

// turn carries one event through the router
type turn struct {
	Event
	ctx context.Context
	log *zap.Logger
}

func (t *turn) userID() int64 {
	return t.User.UserID
}

// Handle processes one event to completion
func (h *Handler) Handle(ctx context.Context, ev Event) {
	userID := ev.User.UserID
	unlock := h.lock(userID)
	defer unlock()

	t := &turn{
		Event: ev,
		ctx:   ctx,
		log: h.logger.With(
			zap.String("request_id", uuid.NewString()),
			zap.Int64("user_id", userID),
		),
	}

	if h.sessions.Touch(userID) {
		t.log.Info("New session", zap.String("username", ev.User.Username))
		if err := h.users.Register(ctx, ev.User); err != nil {
			t.log.Warn("Failed to register user", zap.Error(err))
		}
	}

	switch {
	case ev.Callback != nil:
		h.handleCallback(t)
	case ev.Document != nil:
		h.handleDocument(t)
	default:
		h.handleText(t)
	}
}

func (h *Handler) lock(userID int64) func() {
	h.locksMu.Lock()
	l, ok := h.locks[userID]
	if !ok {
		l = &userLock{}
		h.locks[userID] = l
	}
	l.refs++
	h.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		h.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.locks, userID)
		}
		h.locksMu.Unlock()
	}
}

// userLock is dropped from the map once no turn holds or waits for it
type userLock struct {
	mu   sync.Mutex
	refs int
}

// sendTransient replaces the user's menu or prompt
func (h *Handler) sendTransient(t *turn, msg domain.Outgoing, ttl time.Duration) domain.MessageRef {
	return h.tracker.Send(t.ctx, t.userID(), t.ChatID, msg, tracker.Transient, ttl)
}

// sendResult replaces the user's last result
func (h *Handler) sendResult(t *turn, msg domain.Outgoing) domain.MessageRef {
	return h.tracker.Send(t.ctx, t.userID(), t.ChatID, msg, tracker.Result, h.tracker.LongTTL())
}

// finish ends a flow: back to idle with a fresh menu
func (h *Handler) finish(t *turn) {
	h.sessions.SetState(t.userID(), domain.StateIdle)
	h.showMenu(t, "")
}

// restricted rejects entry into a gated state
func (h *Handler) restricted(t *turn, required domain.Tier) {
	t.log.Info("Access denied", zap.Stringer("required", required))

	note := "🚫 <b>Restricted.</b> This option needs approved access. Use " + btnRequestAccess + " to ask the librarian."
	if required == domain.TierAdmin {
		note = "🚫 <b>Restricted.</b> Administrators only."
	}
	h.sessions.SetState(t.userID(), domain.StateIdle)
	h.showMenu(t, note)
}

// enter moves the user into an input state after re-checking the tier
func (h *Handler) enter(t *turn, state domain.State) bool {
	if !h.auth.Allows(t.userID(), state.RequiredTier()) {
		h.restricted(t, state.RequiredTier())
		return false
	}

	h.sessions.SetState(t.userID(), state)
	ref := h.sendTransient(t, domain.Outgoing{Text: prompts[state], RemoveKeyboard: true}, h.tracker.ShortTTL())
	h.sessions.SetPrompt(t.userID(), ref)
	return true
}
