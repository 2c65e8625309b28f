package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelance-market/internal/event"
	"freelance-market/internal/mail"
	"freelance-market/internal/model"
	"freelance-market/internal/repository/memory"
)

type fakeSender struct {
	mu    sync.Mutex
	fail  error
	delay time.Duration
	sent  []mail.Message
}

func (f *fakeSender) Send(ctx context.Context, msg mail.Message) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	f.sent = append(f.sent, msg)
	return uuid.NewString(), nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func queueMessage(store *memory.Store, at time.Time) model.OutboxMessage {
	msg := model.OutboxMessage{
		ID:            uuid.NewString(),
		Kind:          model.OutboxKindSellerSelected,
		Recipient:     "s@x.com",
		Subject:       mail.SellerSelectedSubject,
		Body:          "<p>hi</p>",
		NextAttemptAt: at,
		CreatedAt:     at,
	}
	store.Outbox().Enqueue(msg)
	return msg
}

func TestBackoff(t *testing.T) {
	base := 30 * time.Second
	ceiling := time.Hour

	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 30 * time.Second},
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{7, 32 * time.Minute},
		{8, time.Hour},
		{50, time.Hour},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Backoff(base, ceiling, tc.attempts), "attempts=%d", tc.attempts)
	}
}

func TestNotificationDispatcher_DeliversDueMessages(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sender := &fakeSender{}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	queueMessage(store, now.Add(-time.Minute))
	queueMessage(store, now.Add(time.Hour))

	d := NewNotificationDispatcher(store.Outbox(), sender, nil, DispatcherConfig{})
	d.now = func() time.Time { return now }

	n, err := d.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, sender.count())
	assert.Equal(t, "s@x.com", sender.sent[0].To)

	var sent int
	for _, m := range store.OutboxMessages() {
		if m.SentAt != nil {
			sent++
			assert.Equal(t, 1, m.Attempts)
		}
	}
	assert.Equal(t, 1, sent)

	n, err = d.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotificationDispatcher_RetriesWithBackoff(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sender := &fakeSender{fail: errors.New("smtp unavailable")}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	queueMessage(store, now)

	d := NewNotificationDispatcher(store.Outbox(), sender, nil, DispatcherConfig{MaxAttempts: 3})
	d.now = func() time.Time { return now }

	_, err := d.DrainOnce(ctx)
	require.NoError(t, err)

	msg := store.OutboxMessages()[0]
	assert.Equal(t, 1, msg.Attempts)
	assert.Equal(t, now.Add(30*time.Second), msg.NextAttemptAt)
	assert.Equal(t, "smtp unavailable", msg.LastError)
	assert.Nil(t, msg.SentAt)

	n, err := d.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "message is not due before its backoff expires")

	now = now.Add(30 * time.Second)
	_, err = d.DrainOnce(ctx)
	require.NoError(t, err)
	msg = store.OutboxMessages()[0]
	assert.Equal(t, 2, msg.Attempts)
	assert.Equal(t, now.Add(time.Minute), msg.NextAttemptAt)

	now = now.Add(time.Minute)
	_, err = d.DrainOnce(ctx)
	require.NoError(t, err)
	msg = store.OutboxMessages()[0]
	assert.Equal(t, 3, msg.Attempts)
	require.NotNil(t, msg.DeadAt)

	now = now.Add(24 * time.Hour)
	n, err = d.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "dead messages are never claimed again")
}

func TestNotificationDispatcher_RunWakesOnAssignment(t *testing.T) {
	store := memory.New()
	bus := event.NewBus()
	sender := &fakeSender{}

	d := NewNotificationDispatcher(store.Outbox(), sender, bus, DispatcherConfig{PollEvery: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	queueMessage(store, time.Now().UTC().Add(-time.Second))

	require.Eventually(t, func() bool {
		bus.Publish(event.New(event.TypeProjectAssigned, "buyer-1", nil))
		return sender.count() >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestDispatcherConfig_LeaseCoversBatch(t *testing.T) {
	cfg := DispatcherConfig{BatchSize: 20, SendTimeout: 30 * time.Second, Lease: 2 * time.Minute}.withDefaults()
	assert.Equal(t, 21*30*time.Second, cfg.Lease)

	cfg = DispatcherConfig{BatchSize: 2, SendTimeout: time.Second, Lease: time.Hour}.withDefaults()
	assert.Equal(t, time.Hour, cfg.Lease)

	cfg = DispatcherConfig{}.withDefaults()
	assert.GreaterOrEqual(t, cfg.Lease, time.Duration(cfg.BatchSize)*cfg.SendTimeout)
}

func TestNotificationDispatcher_ConcurrentDispatchersSendOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sender := &fakeSender{delay: 40 * time.Millisecond}

	queued := time.Now().UTC().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		queueMessage(store, queued)
	}

	cfg := DispatcherConfig{BatchSize: 20, Lease: 50 * time.Millisecond, SendTimeout: 100 * time.Millisecond}
	first := NewNotificationDispatcher(store.Outbox(), sender, nil, cfg)
	second := NewNotificationDispatcher(store.Outbox(), sender, nil, cfg)

	done := make(chan int, 1)
	go func() {
		n, err := first.DrainOnce(ctx)
		assert.NoError(t, err)
		done <- n
	}()

	time.Sleep(70 * time.Millisecond)
	reclaimed, err := second.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, reclaimed)

	assert.Equal(t, 3, <-done)
	assert.Equal(t, 3, sender.count())
	for _, msg := range store.OutboxMessages() {
		assert.NotNil(t, msg.SentAt)
	}
}
