package service

import (
	"time"

	"github.com/rs/zerolog"

	"workmarket/internal/domain"
	"workmarket/internal/events"
	"workmarket/internal/metrics"
)

type clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

func publish(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, payload interface{}) {
	if bus == nil {
		return
	}
	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

func statusChanged(entity string, id int64, from, to string, at time.Time) events.StatusChangedPayload {
	return events.StatusChangedPayload{Entity: entity, EntityID: id, From: from, To: to, At: at}
}

// rejectDraft records a validation failure and wraps the messages.
func rejectDraft(entity string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	metrics.IncValidationFailure(entity)
	return domain.NewValidationError(errs)
}
