// Package scheduler deletes sent messages after a delay, optionally animating
// a short countdown in the message text right before removal.
package scheduler

import (
	"context"
	"sync"
	"time"

	"librarian/internal/domain"

	"go.uber.org/zap"
)

// Messenger is the part of the chat transport the scheduler drives
type Messenger interface {
	Edit(ctx context.Context, ref domain.MessageRef, text string) error
	Restore(ctx context.Context, ref domain.MessageRef, msg domain.Outgoing) error
	Delete(ctx context.Context, ref domain.MessageRef) error
}

// Phase is the lifecycle step of a scheduled deletion
type Phase int

const (
	PhaseScheduled Phase = iota
	PhaseAnimating
	PhaseDeleting
	PhaseDeleted
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseScheduled:
		return "scheduled"
	case PhaseAnimating:
		return "animating"
	case PhaseDeleting:
		return "deleting"
	case PhaseDeleted:
		return "deleted"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Deletion describes a pending removal
type Deletion struct {
	Target  domain.MessageRef
	Owner   int64
	FireAt  time.Time
	Animate bool
	Phase   Phase
}

// DefaultFrames is the countdown shown before a message disappears
var DefaultFrames = []string{"🫥 Vanishing in 2…", "🫥 …1…", "🫥 …"}

const callTimeout = 10 * time.Second

// Options tunes the animation
type Options struct {
	Frames        []string
	FrameInterval time.Duration
}

// Scheduler keeps at most one live deletion per message
type Scheduler struct {
	messenger Messenger
	logger    *zap.Logger
	frames    []string
	interval  time.Duration

	mu      sync.Mutex
	pending map[domain.MessageRef]*task
	wg      sync.WaitGroup

	base context.Context
	stop context.CancelFunc
}

// New creates a scheduler
func New(messenger Messenger, logger *zap.Logger, opts Options) *Scheduler {
	if len(opts.Frames) == 0 {
		opts.Frames = DefaultFrames
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = time.Second
	}

	base, stop := context.WithCancel(context.Background())
	return &Scheduler{
		messenger: messenger,
		logger:    logger,
		frames:    opts.Frames,
		interval:  opts.FrameInterval,
		pending:   make(map[domain.MessageRef]*task),
		base:      base,
		stop:      stop,
	}
}

// AnimationWindow is the time the countdown takes before the delete call
func (s *Scheduler) AnimationWindow() time.Duration {
	return time.Duration(len(s.frames)) * s.interval
}

// Schedule arranges for ref to be deleted after delay, cancelling any
// deletion already pending for the same message.
func (s *Scheduler) Schedule(owner int64, ref domain.MessageRef, delay time.Duration, animate bool) {
	s.schedule(owner, ref, delay, animate, nil)
}

// ScheduleAnimated is Schedule with the countdown. When the deletion is
// cancelled after the countdown started, the message is put back to original.
func (s *Scheduler) ScheduleAnimated(owner int64, ref domain.MessageRef, delay time.Duration, original domain.Outgoing) {
	s.schedule(owner, ref, delay, true, &original)
}

func (s *Scheduler) schedule(owner int64, ref domain.MessageRef, delay time.Duration, animate bool, original *domain.Outgoing) {
	if ref.IsZero() {
		return
	}

	wait := delay
	if animate {
		wait -= s.AnimationWindow()
	}
	if wait < 0 {
		wait = 0
	}

	t := s.register(owner, ref, delay, animate, PhaseScheduled)
	if t == nil {
		return
	}
	t.original = original
	go s.run(t, wait)
}

// Expedite deletes ref right away, superseding any pending deletion of it.
// Failures are swallowed.
func (s *Scheduler) Expedite(ctx context.Context, owner int64, ref domain.MessageRef) {
	if ref.IsZero() {
		return
	}

	t := s.register(owner, ref, 0, false, PhaseDeleting)
	if t == nil {
		return
	}
	defer s.wg.Done()
	defer s.release(t)

	s.delete(ctx, t)
}

// Cancel stops the pending deletion of ref. It reports whether a live
// deletion was cancelled.
func (s *Scheduler) Cancel(ref domain.MessageRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.pending[ref]
	if !ok || !t.abort() {
		return false
	}
	delete(s.pending, ref)
	return true
}

// CancelOwner stops every pending deletion owned by the user and returns how many were cancelled
func (s *Scheduler) CancelOwner(owner int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := 0
	for ref, t := range s.pending {
		if t.owner != owner || !t.abort() {
			continue
		}
		delete(s.pending, ref)
		cancelled++
	}

	if cancelled > 0 {
		s.logger.Debug("Cancelled pending deletions",
			zap.Int64("owner", owner),
			zap.Int("count", cancelled),
		)
	}
	return cancelled
}

// Pending returns the deletion currently registered for ref
func (s *Scheduler) Pending(ref domain.MessageRef) (Deletion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.pending[ref]
	if !ok {
		return Deletion{}, false
	}
	return t.snapshot(), true
}

// Len returns the number of registered deletions
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close stops every timer without deleting and waits for in-flight work
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.stop()
	s.mu.Unlock()
	s.wg.Wait()
}

// register swaps a new task into the registry. The superseded task is
// aborted before the new one becomes visible; nil means nothing to schedule.
func (s *Scheduler) register(owner int64, ref domain.MessageRef, delay time.Duration, animate bool, phase Phase) *task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.base.Err() != nil {
		return nil
	}

	if old, ok := s.pending[ref]; ok && !old.supersede() {
		// The previous task is already deleting this message.
		return nil
	}

	ctx, cancel := context.WithCancel(s.base)
	t := &task{
		ref:     ref,
		owner:   owner,
		fireAt:  time.Now().Add(delay),
		animate: animate,
		phase:   phase,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.pending[ref] = t
	s.wg.Add(1)
	return t
}

// release drops the registry entry only if it still belongs to t
func (s *Scheduler) release(t *task) {
	t.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[t.ref] == t {
		delete(s.pending, t.ref)
	}
}

func (s *Scheduler) run(t *task, wait time.Duration) {
	defer s.wg.Done()
	defer s.release(t)

	if !sleep(t.ctx, wait) {
		return
	}

	if t.animate && t.advance(PhaseAnimating) {
		s.animate(t)
	}

	if !t.advance(PhaseDeleting) {
		s.restore(t)
		return
	}
	s.delete(context.Background(), t)
}

func (s *Scheduler) animate(t *task) {
	for _, frame := range s.frames {
		t.edited = true
		if err := s.messenger.Edit(t.ctx, t.ref, frame); err != nil {
			// Photos have no text and the message may already be gone.
			s.logger.Debug("Skipping deletion animation",
				zap.Int64("chat_id", t.ref.ChatID),
				zap.Int("message_id", t.ref.MessageID),
				zap.Error(err),
			)
			return
		}
		if !sleep(t.ctx, s.interval) {
			return
		}
	}
}

// restore undoes the countdown of a cancelled task. A task superseded by a
// newer one leaves the message to it.
func (s *Scheduler) restore(t *task) {
	if !t.edited || t.original == nil || t.replaced() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	if err := s.messenger.Restore(ctx, t.ref, *t.original); err != nil {
		s.logger.Debug("Failed to restore message",
			zap.Int64("chat_id", t.ref.ChatID),
			zap.Int("message_id", t.ref.MessageID),
			zap.Error(err),
		)
	}
}

func (s *Scheduler) delete(ctx context.Context, t *task) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if err := s.messenger.Delete(ctx, t.ref); err != nil {
		s.logger.Debug("Failed to delete message",
			zap.Int64("chat_id", t.ref.ChatID),
			zap.Int("message_id", t.ref.MessageID),
			zap.Error(err),
		)
	}
	t.finish()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
