package service

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/events"
	"github.com/benleytuano/ts-api-service/internal/repository"
	apperrors "github.com/benleytuano/ts-api-service/pkg/util/errorutil"
)

// Field limits mirrored from the storage schema.
const (
	maxTitleLength         = 255
	maxContactNumberLength = 50
	maxShortTextLength     = 255
)

var plainText = bluemonday.StrictPolicy()

// sanitize strips markup from free text and trims it. Entities escaped by the policy are decoded
// again so plain punctuation survives unchanged.
func sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(value)))
}

// optionalText sanitizes an optional field, collapsing blanks to nil.
func optionalText(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := sanitize(*value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func tooLong(value *string, limit int) bool {
	return value != nil && utf8.RuneCountInString(*value) > limit
}

// storeError translates repository failures into caller-facing errors.
func storeError(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, repository.ErrInvalidReference):
		return apperrors.NewValidationError("referenced record does not exist", map[string]any{"resource": resource})
	case errors.Is(err, repository.ErrConstraint):
		return apperrors.NewValidationError("value rejected by store constraint", map[string]any{"resource": resource})
	case errors.Is(err, repository.ErrStillReferenced):
		return apperrors.NewConflict(resource+" is still referenced", map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	default:
		return apperrors.NewInternalError(err)
	}
}

// publisher stamps and publishes lifecycle events. Handler failures are logged, never returned.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func (p publisher) publish(ctx context.Context, eventType events.EventType, actor domain.Actor, ticketID string, payload interface{}) {
	if p.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        repository.NewID(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: p.now(),
		Payload:   payload,
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event handler failed",
			zap.String("event_type", string(eventType)),
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}
