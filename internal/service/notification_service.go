package service

import (
	"context"
	"log/slog"
	"time"

	"freelance-market/internal/event"
	"freelance-market/internal/mail"
	"freelance-market/internal/metrics"
	"freelance-market/internal/model"
)

const (
	defaultBaseBackoff = 30 * time.Second
	defaultMaxBackoff  = time.Hour
	defaultSendTimeout = 30 * time.Second
	defaultMaxAttempts = 8
	defaultOutboxBatch = 20
	defaultOutboxPoll  = 15 * time.Second
)

type DispatcherConfig struct {
	PollEvery   time.Duration
	BatchSize   int
	MaxAttempts int
	Lease       time.Duration
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	SendTimeout time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.PollEvery <= 0 {
		c.PollEvery = defaultOutboxPoll
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultOutboxBatch
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = defaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = defaultSendTimeout
	}
	// A claimed batch is sent one message at a time, so its lease must outlast
	// every send in it or another dispatcher reclaims the tail and mails twice.
	if minLease := time.Duration(c.BatchSize+1) * c.SendTimeout; c.Lease < minLease {
		c.Lease = minLease
	}
	return c
}

// NotificationDispatcher drains the outbox through a mail sender. Failed
// sends are retried with exponential backoff; after MaxAttempts a message is
// parked as dead and left for an operator.
type NotificationDispatcher struct {
	outbox OutboxStore
	sender mail.Sender
	bus    event.Bus
	cfg    DispatcherConfig
	now    func() time.Time
}

func NewNotificationDispatcher(outbox OutboxStore, sender mail.Sender, bus event.Bus, cfg DispatcherConfig) *NotificationDispatcher {
	return &NotificationDispatcher{
		outbox: outbox,
		sender: sender,
		bus:    bus,
		cfg:    cfg.withDefaults(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run drains on every poll tick and whenever a seller is assigned, until ctx
// is cancelled.
func (d *NotificationDispatcher) Run(ctx context.Context) {
	var wake <-chan event.Event
	if d.bus != nil {
		events, unsubscribe := d.bus.Subscribe()
		defer unsubscribe()
		wake = events
	}

	ticker := time.NewTicker(d.cfg.PollEvery)
	defer ticker.Stop()

	slog.Info("notification dispatcher started", "poll_every", d.cfg.PollEvery.String(), "max_attempts", d.cfg.MaxAttempts)
	d.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("notification dispatcher stopped")
			return
		case <-ticker.C:
			d.drain(ctx)
		case e, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			if e.Type == event.TypeProjectAssigned {
				d.drain(ctx)
			}
		}
	}
}

func (d *NotificationDispatcher) drain(ctx context.Context) {
	for {
		n, err := d.DrainOnce(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("outbox drain failed", "error", err)
			}
			return
		}
		if n < d.cfg.BatchSize {
			return
		}
	}
}

// DrainOnce claims one batch of due messages and attempts each. It returns
// the number of messages claimed.
func (d *NotificationDispatcher) DrainOnce(ctx context.Context) (int, error) {
	now := d.now()
	batch, err := d.outbox.ClaimDue(ctx, now, d.cfg.BatchSize, d.cfg.Lease)
	if err != nil {
		return 0, err
	}

	for _, msg := range batch {
		d.deliver(ctx, msg)
	}
	return len(batch), nil
}

func (d *NotificationDispatcher) deliver(ctx context.Context, msg model.OutboxMessage) {
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	providerID, sendErr := d.sender.Send(sendCtx, mail.Message{To: msg.Recipient, Subject: msg.Subject, HTML: msg.Body})
	cancel()

	now := d.now()
	if sendErr == nil {
		if err := d.outbox.MarkSent(ctx, msg.ID, now); err != nil {
			slog.Error("outbox mark sent failed", "id", msg.ID, "error", err)
			return
		}
		metrics.OutboxDeliveriesTotal.WithLabelValues("sent").Inc()
		slog.Info("notification sent", "id", msg.ID, "kind", msg.Kind, "recipient", msg.Recipient, "provider_id", providerID)
		return
	}

	attempts := msg.Attempts + 1
	if attempts >= d.cfg.MaxAttempts {
		if err := d.outbox.MarkDead(ctx, msg.ID, attempts, now, sendErr.Error()); err != nil {
			slog.Error("outbox mark dead failed", "id", msg.ID, "error", err)
			return
		}
		metrics.OutboxDeliveriesTotal.WithLabelValues("dead").Inc()
		slog.Error("notification parked after max attempts",
			"id", msg.ID, "kind", msg.Kind, "recipient", msg.Recipient, "attempts", attempts, "error", sendErr)
		return
	}

	next := now.Add(Backoff(d.cfg.BaseBackoff, d.cfg.MaxBackoff, attempts))
	if err := d.outbox.MarkFailed(ctx, msg.ID, attempts, next, sendErr.Error()); err != nil {
		slog.Error("outbox mark failed failed", "id", msg.ID, "error", err)
		return
	}
	metrics.OutboxDeliveriesTotal.WithLabelValues("retry").Inc()
	slog.Warn("notification send failed, will retry",
		"id", msg.ID, "attempts", attempts, "next_attempt_at", next.Format(time.RFC3339), "error", sendErr)
}

// Backoff returns base doubled for every attempt after the first, capped at ceiling.
func Backoff(base time.Duration, ceiling time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := base
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	if delay > ceiling {
		return ceiling
	}
	return delay
}
