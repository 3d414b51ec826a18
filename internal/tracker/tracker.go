// Package tracker wraps every outbound message: it replaces the user's
// previous message of the same kind and hands the new one to the scheduler.
package tracker

import (
	"context"
	"fmt"
	"time"

	"librarian/internal/domain"
	"librarian/internal/session"

	"go.uber.org/zap"
)

// Kind classifies outbound messages
type Kind int

const (
	// Transient messages are menus and prompts
	Transient Kind = iota
	// Result messages carry content the user reads
	Result
	// Notice messages go to other chats and replace nothing
	Notice
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Result:
		return "result"
	default:
		return "notice"
	}
}

// Sender sends a message to a chat
type Sender interface {
	Send(ctx context.Context, chatID int64, msg domain.Outgoing) (domain.MessageRef, error)
}

// Scheduler arranges message deletion
type Scheduler interface {
	Schedule(owner int64, ref domain.MessageRef, delay time.Duration, animate bool)
	ScheduleAnimated(owner int64, ref domain.MessageRef, delay time.Duration, original domain.Outgoing)
	Expedite(ctx context.Context, owner int64, ref domain.MessageRef)
}

// Options holds the standard TTLs
type Options struct {
	ShortTTL time.Duration
	LongTTL  time.Duration
	Animate  bool
}

// Tracker is the outbound message tracker
type Tracker struct {
	sender    Sender
	scheduler Scheduler
	sessions  *session.Store
	logger    *zap.Logger
	opts      Options
}

// New creates a tracker
func New(sender Sender, scheduler Scheduler, sessions *session.Store, logger *zap.Logger, opts Options) *Tracker {
	return &Tracker{
		sender:    sender,
		scheduler: scheduler,
		sessions:  sessions,
		logger:    logger,
		opts:      opts,
	}
}

// ShortTTL is the delay for ambient chatter
func (t *Tracker) ShortTTL() time.Duration { return t.opts.ShortTTL }

// LongTTL is the delay for content the user reads
func (t *Tracker) LongTTL() time.Duration { return t.opts.LongTTL }

// Send delivers msg to chatID on behalf of userID. A zero ttl keeps the
// message. Failures are logged and yield a zero ref.
func (t *Tracker) Send(ctx context.Context, userID, chatID int64, msg domain.Outgoing, kind Kind, ttl time.Duration) domain.MessageRef {
	if ttl > 0 && ttl >= t.opts.LongTTL {
		msg.Text = annotate(msg.Text, ttl)
	}

	switch kind {
	case Transient:
		t.scheduler.Expedite(ctx, userID, t.sessions.SwapTransient(userID, domain.MessageRef{}))
	case Result:
		t.scheduler.Expedite(ctx, userID, t.sessions.SwapResult(userID, domain.MessageRef{}))
	}

	ref, err := t.sender.Send(ctx, chatID, msg)
	if err != nil {
		t.logger.Warn("Failed to send message",
			zap.Int64("user_id", userID),
			zap.Int64("chat_id", chatID),
			zap.Stringer("kind", kind),
			zap.Error(err),
		)
		return domain.MessageRef{}
	}

	// Schedule before publishing the ref so a later send that supersedes it
	// replaces this timer instead of racing it.
	animate := t.opts.Animate && ttl >= t.opts.LongTTL
	switch {
	case ttl <= 0:
	case animate && len(msg.Photo) == 0 && msg.Document == nil:
		t.scheduler.ScheduleAnimated(userID, ref, ttl, msg)
	default:
		t.scheduler.Schedule(userID, ref, ttl, animate)
	}

	// A concurrent send may have recorded a newer message meanwhile; it is
	// superseded by this one.
	switch kind {
	case Transient:
		t.scheduler.Expedite(ctx, userID, t.sessions.SwapTransient(userID, ref))
	case Result:
		t.scheduler.Expedite(ctx, userID, t.sessions.SwapResult(userID, ref))
	}
	return ref
}

// Expire schedules deletion of a message the tracker did not send, such as user input
func (t *Tracker) Expire(userID int64, ref domain.MessageRef, ttl time.Duration) {
	t.scheduler.Schedule(userID, ref, ttl, false)
}

// Discard deletes a message now
func (t *Tracker) Discard(ctx context.Context, userID int64, ref domain.MessageRef) {
	t.scheduler.Expedite(ctx, userID, ref)
}

func annotate(text string, ttl time.Duration) string {
	notice := fmt.Sprintf("<i>⏳ This message auto-deletes in %s.</i>", FormatTTL(ttl))
	if text == "" {
		return notice
	}
	return text + "\n\n" + notice
}

// FormatTTL renders a delay the way users read it
func FormatTTL(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	case d >= time.Minute:
		return fmt.Sprintf("%d min %d sec", int(d/time.Minute), int(d%time.Minute/time.Second))
	default:
		return plural(int(d.Round(time.Second)/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
