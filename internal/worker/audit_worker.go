package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"workmarket/internal/domain"
	"workmarket/internal/events"
	"workmarket/internal/models"
)

const (
	auditQueueKey      = "workmarket:audit:queue"
	auditDeadLetterKey = "workmarket:audit:deadletter"
)

// AuditWorker appends committed status transitions to the transition log.
// Events are buffered in memory, spill over to a Redis list when the buffer
// is full, and land in a Redis dead-letter list once retries are exhausted.
type AuditWorker struct {
	repo          domain.TransitionLogRepository
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.StatusTransition
	redisQueueKey string
	deadLetterKey string
	logger        *zerolog.Logger

	done chan struct{}
}

func NewAuditWorker(repo domain.TransitionLogRepository, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *AuditWorker {
	defaults := DefaultRetryPolicy()
	if retry.MaxRetries == 0 {
		retry.MaxRetries = defaults.MaxRetries
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = defaults.InitialDelay
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = defaults.MaxDelay
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = defaults.BackoffFactor
	}
	l := logger.With().Str("component", "audit_worker").Logger()

	return &AuditWorker{
		repo:          repo,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.StatusTransition, models.AuditQueueSize),
		redisQueueKey: auditQueueKey,
		deadLetterKey: auditDeadLetterKey,
		logger:        &l,
		done:          make(chan struct{}),
	}
}

// Subscribe attaches the worker to status-change events on the bus.
func (w *AuditWorker) Subscribe(bus *events.EventBus) {
	bus.Subscribe(w.HandleEvent, events.EventBookingStatusChanged, events.EventGigStatusChanged)
}

func (w *AuditWorker) HandleEvent(event *events.Event) error {
	var payload events.StatusChangedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	return w.Enqueue(context.Background(), models.StatusTransition{
		Entity:   payload.Entity,
		EntityID: payload.EntityID,
		From:     payload.From,
		To:       payload.To,
		At:       payload.At,
	})
}

// Enqueue never blocks the caller: memory first, then Redis.
func (w *AuditWorker) Enqueue(ctx context.Context, t models.StatusTransition) error {
	if t.Entity == "" || t.EntityID == 0 {
		return errors.New("transition entity is required")
	}
	select {
	case w.queue <- t:
		return nil
	default:
	}

	if w.redis == nil {
		w.logger.Error().Str("entity", t.Entity).Int64("entity_id", t.EntityID).Msg("Audit queue full, transition dropped")
		return errors.New("audit queue is full")
	}
	if err := w.push(ctx, w.redisQueueKey, t); err != nil {
		return fmt.Errorf("spill transition to redis: %w", err)
	}
	return nil
}

// Start launches main loop; stops when ctx is done and drains the memory buffer.
// Start must be called at most once; Wait reports when it has returned.
func (w *AuditWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Audit worker started")
	defer close(w.done)
	defer w.logger.Info().Msg("Audit worker stopped")

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.Drain(drainCtx)
			cancel()
			return
		case t := <-w.queue:
			w.process(ctx, t)
			continue
		default:
		}

		if w.redis != nil {
			if t, ok := w.tryRedis(ctx); ok {
				w.process(ctx, t)
			}
			continue
		}

		select {
		case <-ctx.Done():
		case t := <-w.queue:
			w.process(ctx, t)
		}
	}
}

// Wait blocks until Start has drained the buffer and returned, or ctx ends.
// The repository and Redis client must stay open until Wait returns.
func (w *AuditWorker) Wait(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain writes whatever is still buffered in memory.
func (w *AuditWorker) Drain(ctx context.Context) int {
	n := 0
	for {
		select {
		case t := <-w.queue:
			w.process(ctx, t)
			n++
		default:
			return n
		}
	}
}

func (w *AuditWorker) tryRedis(ctx context.Context) (models.StatusTransition, bool) {
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("Redis BRPOP failed")
			time.Sleep(time.Second)
		}
		return models.StatusTransition{}, false
	}
	if len(res) != 2 {
		return models.StatusTransition{}, false
	}
	var t models.StatusTransition
	if err := json.Unmarshal([]byte(res[1]), &t); err != nil {
		w.logger.Error().Err(err).Msg("Failed to decode queued transition")
		return models.StatusTransition{}, false
	}
	return t, true
}

func (w *AuditWorker) process(ctx context.Context, t models.StatusTransition) {
	attempts, err := w.retryPolicy.Do(ctx, func(ctx context.Context) error {
		return w.repo.AppendTransition(ctx, &t)
	})
	if err == nil {
		w.logger.Debug().
			Str("entity", t.Entity).
			Int64("entity_id", t.EntityID).
			Str("from", t.From).
			Str("to", t.To).
			Msg("Transition recorded")
		return
	}

	w.logger.Error().Err(err).
		Str("entity", t.Entity).
		Int64("entity_id", t.EntityID).
		Int("attempts", attempts).
		Msg("Failed to record transition")
	w.pushDeadLetter(t)
}

func (w *AuditWorker) pushDeadLetter(t models.StatusTransition) {
	if w.redis == nil {
		return
	}
	// ctx of the caller may already be cancelled during shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.push(ctx, w.deadLetterKey, t); err != nil {
		w.logger.Error().Err(err).Int64("entity_id", t.EntityID).Msg("Dead-letter push failed")
	}
}

func (w *AuditWorker) push(ctx context.Context, key string, t models.StatusTransition) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
