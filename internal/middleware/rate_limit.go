package middleware

import (
	"sync"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// RateLimit enforces a minimum interval between updates of the same user.
// Limited button presses are answered so the client stops spinning.
func RateLimit(interval time.Duration, logger *zap.Logger) tele.MiddlewareFunc {
	limiter := newLimiter(interval)

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || interval <= 0 {
				return next(c)
			}

			if !limiter.allow(sender.ID, time.Now()) {
				logger.Debug("Rate limited", zap.Int64("user_id", sender.ID))
				if c.Callback() != nil {
					return c.Respond(&tele.CallbackResponse{Text: "⏳ Slow down a little."})
				}
				return nil
			}

			return next(c)
		}
	}
}

type limiter struct {
	interval time.Duration

	mu        sync.Mutex
	lastSeen  map[int64]time.Time
	lastSweep time.Time
}

func newLimiter(interval time.Duration) *limiter {
	return &limiter{
		interval: interval,
		lastSeen: make(map[int64]time.Time),
	}
}

// allow records the update and reports whether it came at least one
// interval after the user's previous one. Users idle for longer than the
// interval are forgotten, at most once per interval.
func (l *limiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.interval {
		for id, last := range l.lastSeen {
			if now.Sub(last) >= l.interval {
				delete(l.lastSeen, id)
			}
		}
		l.lastSweep = now
	}

	if last, ok := l.lastSeen[userID]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[userID] = now
	return true
}
