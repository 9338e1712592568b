package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/repository"
)

type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository builds the SQLite ticket store.
func NewTicketRepository(db *gorm.DB) repository.TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) hydrated(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Assignee").
		Preload("Category").
		Preload("Department").
		Preload("Location")
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = repository.NewID()
	}
	repository.StampTimes(&ticket.CreatedAt, &ticket.UpdatedAt, time.Now().UTC())

	row := ticketFromDomain(ticket)
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error
	return translate(err, repository.ErrInvalidReference)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var row ticketRow
	if err := r.hydrated(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, translate(err, repository.ErrInvalidReference)
	}
	ticket := row.toDomain()
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	query := r.hydrated(ctx).Model(&ticketRow{})
	if filter.RequesterID != nil {
		query = query.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", repository.StatusStrings(filter.Statuses))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
	}

	var rows []ticketRow
	if err := query.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, translate(err, repository.ErrInvalidReference)
	}

	result := make([]domain.Ticket, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (r *ticketRepository) ConditionalUpdate(ctx context.Context, id string, guard repository.TicketGuard, change repository.TicketChange) (int64, error) {
	if err := change.Validate(); err != nil {
		return 0, err
	}
	if change.UpdatedAt.IsZero() {
		change.UpdatedAt = time.Now().UTC()
	}

	values := map[string]any{"updated_at": change.UpdatedAt}
	if a := change.Assignment; a != nil {
		if a.AssigneeID == "" {
			values["assignee_id"] = nil
			values["assigned_at"] = nil
		} else {
			values["assignee_id"] = a.AssigneeID
			values["assigned_at"] = a.At
		}
	}
	if change.Status != nil {
		values["status"] = string(*change.Status)
	}

	query := r.db.WithContext(ctx).Model(&ticketRow{}).Where("id = ?", id)
	if guard.Unassigned {
		query = query.Where("assignee_id IS NULL")
	}
	if guard.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *guard.AssigneeID)
	}
	if len(guard.Statuses) > 0 {
		query = query.Where("status IN ?", repository.StatusStrings(guard.Statuses))
	}

	result := query.UpdateColumns(values)
	if result.Error != nil {
		return 0, translate(result.Error, repository.ErrInvalidReference)
	}
	return result.RowsAffected, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ticketRow{})
	if result.Error != nil {
		return translate(result.Error, repository.ErrStillReferenced)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
