package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workmarket/internal/events"
	"workmarket/internal/models"
)

type fakeLog struct {
	mu       sync.Mutex
	failures int
	records  []models.StatusTransition
}

func (f *fakeLog) AppendTransition(_ context.Context, t *models.StatusTransition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("database is locked")
	}
	f.records = append(f.records, *t)
	return nil
}

func (f *fakeLog) ListTransitions(_ context.Context, entity string, id int64) ([]*models.StatusTransition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.StatusTransition
	for i := range f.records {
		if f.records[i].Entity == entity && f.records[i].EntityID == id {
			r := f.records[i]
			out = append(out, &r)
		}
	}
	return out, nil
}

func (f *fakeLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

var fastRetry = RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func newTransition(id int64) models.StatusTransition {
	return models.StatusTransition{
		Entity:   models.EntityBooking,
		EntityID: id,
		From:     "Pending",
		To:       "Confirmed",
		At:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 5*time.Second, policy.NextDelay(5))
	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(0))
}

func TestRetryPolicyDo(t *testing.T) {
	calls := 0
	attempts, err := fastRetry.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	attempts, err = fastRetry.Do(context.Background(), func(context.Context) error {
		return errors.New("permanent")
	})
	assert.EqualError(t, err, "permanent")
	assert.Equal(t, 3, attempts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := RetryPolicy{MaxRetries: 5, InitialDelay: time.Hour}
	attempts, err = slow.Do(ctx, func(context.Context) error { return errors.New("x") })
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestAuditWorker_HandleEvent(t *testing.T) {
	log := &fakeLog{}
	logger := zerolog.Nop()
	w := NewAuditWorker(log, nil, fastRetry, &logger)

	bus := events.NewEventBus()
	w.Subscribe(bus)

	require.NoError(t, bus.PublishJSON(events.EventGigStatusChanged, events.StatusChangedPayload{
		Entity: models.EntityJobGig, EntityID: 9, From: "Open", To: "InProgress", At: time.Now().UTC(),
	}))
	require.NoError(t, bus.PublishJSON(events.EventBidAdded, events.BidEventPayload{BidID: 1}))

	assert.Equal(t, 1, w.Drain(context.Background()))
	recorded, err := log.ListTransitions(context.Background(), models.EntityJobGig, 9)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, "InProgress", recorded[0].To)
}

func TestAuditWorker_HandleEventBadPayload(t *testing.T) {
	logger := zerolog.Nop()
	w := NewAuditWorker(&fakeLog{}, nil, fastRetry, &logger)
	err := w.HandleEvent(&events.Event{Type: events.EventBookingStatusChanged, Payload: []byte("{")})
	assert.Error(t, err)
}

func TestAuditWorker_RetryThenSuccess(t *testing.T) {
	log := &fakeLog{failures: 2}
	logger := zerolog.Nop()
	w := NewAuditWorker(log, nil, fastRetry, &logger)

	require.NoError(t, w.Enqueue(context.Background(), newTransition(1)))
	w.Drain(context.Background())

	assert.Equal(t, 1, log.count())
}

func TestAuditWorker_DeadLetter(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	log := &fakeLog{failures: 100}
	logger := zerolog.Nop()
	w := NewAuditWorker(log, client, fastRetry, &logger)

	require.NoError(t, w.Enqueue(context.Background(), newTransition(2)))
	w.Drain(context.Background())

	assert.Equal(t, 0, log.count())
	items, err := mr.List(auditDeadLetterKey)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var dead models.StatusTransition
	require.NoError(t, json.Unmarshal([]byte(items[0]), &dead))
	assert.Equal(t, int64(2), dead.EntityID)
}

func TestAuditWorker_SpillToRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	logger := zerolog.Nop()
	log := &fakeLog{}
	w := NewAuditWorker(log, client, fastRetry, &logger)

	ctx := context.Background()
	for i := 0; i < models.AuditQueueSize+3; i++ {
		require.NoError(t, w.Enqueue(ctx, newTransition(int64(i+1))))
	}
	items, err := mr.List(auditQueueKey)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	t2, ok := w.tryRedis(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(models.AuditQueueSize+1), t2.EntityID)
}

func TestAuditWorker_QueueFullWithoutRedis(t *testing.T) {
	logger := zerolog.Nop()
	w := NewAuditWorker(&fakeLog{}, nil, fastRetry, &logger)

	ctx := context.Background()
	for i := 0; i < models.AuditQueueSize; i++ {
		require.NoError(t, w.Enqueue(ctx, newTransition(int64(i+1))))
	}
	assert.Error(t, w.Enqueue(ctx, newTransition(999)))
	assert.Error(t, w.Enqueue(ctx, models.StatusTransition{}))
}

func TestAuditWorker_StartStop(t *testing.T) {
	log := &fakeLog{}
	logger := zerolog.Nop()
	w := NewAuditWorker(log, nil, fastRetry, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Enqueue(ctx, newTransition(int64(i+1))))
	}
	assert.Eventually(t, func() bool { return log.count() == 5 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestAuditWorker_StopDrainsBuffer(t *testing.T) {
	log := &fakeLog{}
	logger := zerolog.Nop()
	w := NewAuditWorker(log, nil, fastRetry, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 20; i++ {
		require.NoError(t, w.Enqueue(ctx, newTransition(int64(i+1))))
	}
	// остановлен до того, как цикл успел что-то забрать
	cancel()
	go w.Start(ctx)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, w.Wait(waitCtx))
	assert.Equal(t, 20, log.count())
}

func TestAuditWorker_WaitTimeout(t *testing.T) {
	logger := zerolog.Nop()
	w := NewAuditWorker(&fakeLog{}, nil, fastRetry, &logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Wait(ctx), context.DeadlineExceeded)
}
