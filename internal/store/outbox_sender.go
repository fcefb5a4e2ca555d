// Package store provides the OutboxSender for delivering queued appointment notices.
package store

import (
	"context"
	"log/slog"
	"time"
)

// Sender defaults.
const (
	DefaultOutboxPollInterval   = 5 * time.Second
	DefaultOutboxStaleThreshold = 5 * time.Minute
	DefaultOutboxClaimLimit     = 10
	DefaultOutboxMaxAttempts    = 8
	DefaultOutboxMaxBackoff     = time.Hour
)

// OutboxSendFunc performs the actual delivery of one message.
type OutboxSendFunc func(ctx context.Context, msg OutboxMessage) error

// OutboxSenderOption configures an OutboxSender.
type OutboxSenderOption func(*OutboxSender)

// WithMaxAttempts abandons a notice after n failed deliveries. Zero retries forever.
func WithMaxAttempts(n int) OutboxSenderOption {
	return func(s *OutboxSender) { s.maxAttempts = n }
}

// WithStaleThreshold sets how long a claimed notice may stay in sending before recovery requeues it.
func WithStaleThreshold(d time.Duration) OutboxSenderOption {
	return func(s *OutboxSender) { s.staleThreshold = d }
}

// WithClaimLimit caps how many notices one poll delivers.
func WithClaimLimit(n int) OutboxSenderOption {
	return func(s *OutboxSender) { s.claimLimit = n }
}

// OutboxSender periodically claims due notices and hands them to the send function.
type OutboxSender struct {
	repo           OutboxRepo
	sendFunc       OutboxSendFunc
	pollInterval   time.Duration
	staleThreshold time.Duration
	claimLimit     int
	maxAttempts    int
	now            func() time.Time
}

// NewOutboxSender creates an OutboxSender. A non-positive pollInterval uses the default.
func NewOutboxSender(repo OutboxRepo, sendFunc OutboxSendFunc, pollInterval time.Duration, opts ...OutboxSenderOption) *OutboxSender {
	if pollInterval <= 0 {
		pollInterval = DefaultOutboxPollInterval
	}
	s := &OutboxSender{
		repo:           repo,
		sendFunc:       sendFunc,
		pollInterval:   pollInterval,
		staleThreshold: DefaultOutboxStaleThreshold,
		claimLimit:     DefaultOutboxClaimLimit,
		maxAttempts:    DefaultOutboxMaxAttempts,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RetryBackoff is the delay before retry number attempts+1: 10s, 20s, 40s, ... capped at DefaultOutboxMaxBackoff.
func RetryBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 20 {
		return DefaultOutboxMaxBackoff
	}
	d := time.Duration(10*(1<<attempts)) * time.Second
	if d > DefaultOutboxMaxBackoff {
		return DefaultOutboxMaxBackoff
	}
	return d
}

// RecoverStaleMessages requeues notices stuck in sending. Run at startup and on a schedule.
func (s *OutboxSender) RecoverStaleMessages(ctx context.Context) error {
	n, err := s.repo.RequeueStaleSendingMessages(ctx, s.now().Add(-s.staleThreshold))
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("OutboxSender.RecoverStaleMessages: requeued stale messages", "count", n)
	}
	return nil
}

// Run polls until ctx is cancelled.
func (s *OutboxSender) Run(ctx context.Context) {
	slog.Info("OutboxSender.Run: starting", "pollInterval", s.pollInterval, "maxAttempts", s.maxAttempts)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("OutboxSender.Run: stopping")
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll delivers every due notice once and returns how many were sent. Failures are
// rescheduled with RetryBackoff until maxAttempts is reached, then marked failed.
func (s *OutboxSender) Poll(ctx context.Context) int {
	now := s.now()
	msgs, err := s.repo.ClaimDueOutboxMessages(ctx, now, s.claimLimit)
	if err != nil {
		slog.Error("OutboxSender.Poll: claim failed", "error", err)
		return 0
	}

	sent := 0
	for _, msg := range msgs {
		if err := s.sendFunc(ctx, msg); err != nil {
			s.handleFailure(ctx, msg, err, now)
			continue
		}
		if err := s.repo.MarkOutboxMessageSent(ctx, msg.ID); err != nil {
			slog.Error("OutboxSender.Poll: mark sent failed", "id", msg.ID, "error", err)
			continue
		}
		sent++
		slog.Debug("OutboxSender.Poll: notice sent", "id", msg.ID, "kind", msg.Kind)
	}
	return sent
}

func (s *OutboxSender) handleFailure(ctx context.Context, msg OutboxMessage, sendErr error, now time.Time) {
	if s.maxAttempts > 0 && msg.Attempts+1 >= s.maxAttempts {
		slog.Error("OutboxSender.Poll: giving up on notice", "id", msg.ID, "kind", msg.Kind, "attempts", msg.Attempts+1, "error", sendErr)
		if err := s.repo.AbandonOutboxMessage(ctx, msg.ID, sendErr.Error()); err != nil {
			slog.Error("OutboxSender.Poll: abandon failed", "id", msg.ID, "error", err)
		}
		return
	}
	slog.Warn("OutboxSender.Poll: send failed, will retry", "id", msg.ID, "attempts", msg.Attempts+1, "error", sendErr)
	if err := s.repo.FailOutboxMessage(ctx, msg.ID, sendErr.Error(), now.Add(RetryBackoff(msg.Attempts))); err != nil {
		slog.Error("OutboxSender.Poll: reschedule failed", "id", msg.ID, "error", err)
	}
}
