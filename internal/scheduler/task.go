package scheduler

import (
	"context"
	"sync"
	"time"

	"librarian/internal/domain"
)

type task struct {
	ref     domain.MessageRef
	owner   int64
	fireAt  time.Time
	animate bool

	// original is put back when an animation is interrupted
	original *domain.Outgoing
	edited   bool

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	phase      Phase
	superseded bool
}

// abort cancels the task unless its delete call is already committed
func (t *task) abort() bool {
	return t.stop(false)
}

// supersede aborts the task on behalf of a newer one for the same message
func (t *task) supersede() bool {
	return t.stop(true)
}

func (t *task) stop(superseded bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.phase {
	case PhaseScheduled, PhaseAnimating:
		t.phase = PhaseCancelled
		t.superseded = superseded
		t.cancel()
		return true
	default:
		return false
	}
}

func (t *task) replaced() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.superseded
}

// advance moves the task forward. It fails once the task was cancelled,
// either by abort or by the scheduler shutting down.
func (t *task) advance(next Phase) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase == PhaseCancelled || t.ctx.Err() != nil {
		t.phase = PhaseCancelled
		return false
	}
	if next <= t.phase {
		return false
	}
	t.phase = next
	return true
}

func (t *task) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = PhaseDeleted
}

func (t *task) snapshot() Deletion {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Deletion{
		Target:  t.ref,
		Owner:   t.owner,
		FireAt:  t.fireAt,
		Animate: t.animate,
		Phase:   t.phase,
	}
}
