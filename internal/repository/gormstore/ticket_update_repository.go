package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/repository"
)

type ticketUpdateRepository struct {
	db *gorm.DB
}

// NewTicketUpdateRepository builds the SQLite update trail.
func NewTicketUpdateRepository(db *gorm.DB) repository.TicketUpdateRepository {
	return &ticketUpdateRepository{db: db}
}

func (r *ticketUpdateRepository) Append(ctx context.Context, update *domain.TicketUpdate) error {
	if update.ID == "" {
		update.ID = repository.NewID()
	}
	repository.StampTimes(&update.CreatedAt, &update.UpdatedAt, time.Now().UTC())

	row := ticketUpdateRow{
		ID:         update.ID,
		TicketID:   update.TicketID,
		AuthorID:   update.AuthorID,
		Message:    update.Message,
		Type:       string(update.Type),
		IsInternal: update.IsInternal,
		OldValue:   update.OldValue,
		NewValue:   update.NewValue,
		CreatedAt:  update.CreatedAt,
		UpdatedAt:  update.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error
	return translate(err, repository.ErrInvalidReference)
}

func (r *ticketUpdateRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketUpdate, error) {
	query := r.db.WithContext(ctx).Preload("Author").Where("ticket_id = ?", ticketID)
	if !includeInternal {
		query = query.Where("is_internal = ?", false)
	}

	var rows []ticketUpdateRow
	if err := query.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, repository.ErrInvalidReference)
	}

	result := make([]domain.TicketUpdate, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}
