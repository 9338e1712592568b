package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/repository"
)

type referenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository builds the SQLite reference store.
func NewReferenceRepository(db *gorm.DB) repository.ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) Create(ctx context.Context, ref *domain.Reference) error {
	if ref.ID == "" {
		ref.ID = repository.NewID()
	}
	repository.StampTimes(&ref.CreatedAt, &ref.UpdatedAt, time.Now().UTC())

	var row any
	switch ref.Kind {
	case domain.ReferenceCategory:
		row = &categoryRow{ID: ref.ID, Name: ref.Name, CreatedAt: ref.CreatedAt, UpdatedAt: ref.UpdatedAt}
	case domain.ReferenceDepartment:
		row = &departmentRow{ID: ref.ID, Name: ref.Name, CreatedAt: ref.CreatedAt, UpdatedAt: ref.UpdatedAt}
	case domain.ReferenceLocation:
		row = &locationRow{ID: ref.ID, DepartmentID: ref.ParentID, Name: ref.Name, CreatedAt: ref.CreatedAt, UpdatedAt: ref.UpdatedAt}
	default:
		return fmt.Errorf("unknown reference kind %q", ref.Kind)
	}
	return translate(r.db.WithContext(ctx).Create(row).Error, repository.ErrInvalidReference)
}

func (r *referenceRepository) Get(ctx context.Context, kind domain.ReferenceKind, id string) (*domain.Reference, error) {
	refs, err := r.find(ctx, kind, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, repository.ErrNotFound
	}
	return &refs[0], nil
}

func (r *referenceRepository) List(ctx context.Context, kind domain.ReferenceKind) ([]domain.Reference, error) {
	return r.find(ctx, kind, "1 = 1")
}

func (r *referenceRepository) find(ctx context.Context, kind domain.ReferenceKind, cond string, args ...any) ([]domain.Reference, error) {
	query := r.db.WithContext(ctx).Where(cond, args...).Order("name ASC")

	switch kind {
	case domain.ReferenceCategory:
		var rows []categoryRow
		if err := query.Find(&rows).Error; err != nil {
			return nil, translate(err, repository.ErrInvalidReference)
		}
		result := make([]domain.Reference, 0, len(rows))
		for _, row := range rows {
			result = append(result, plainReference(kind, row.ID, row.Name, row.CreatedAt, row.UpdatedAt))
		}
		return result, nil
	case domain.ReferenceDepartment:
		var rows []departmentRow
		if err := query.Find(&rows).Error; err != nil {
			return nil, translate(err, repository.ErrInvalidReference)
		}
		result := make([]domain.Reference, 0, len(rows))
		for _, row := range rows {
			result = append(result, plainReference(kind, row.ID, row.Name, row.CreatedAt, row.UpdatedAt))
		}
		return result, nil
	case domain.ReferenceLocation:
		var rows []locationRow
		if err := query.Find(&rows).Error; err != nil {
			return nil, translate(err, repository.ErrInvalidReference)
		}
		result := make([]domain.Reference, 0, len(rows))
		for _, row := range rows {
			ref := plainReference(kind, row.ID, row.Name, row.CreatedAt, row.UpdatedAt)
			ref.ParentID = row.DepartmentID
			result = append(result, ref)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unknown reference kind %q", kind)
	}
}

func plainReference(kind domain.ReferenceKind, id, name string, created, updated time.Time) domain.Reference {
	return domain.Reference{Kind: kind, ID: id, Name: name, CreatedAt: created, UpdatedAt: updated}
}

// compile-time checks
var (
	_ repository.TicketRepository       = (*ticketRepository)(nil)
	_ repository.TicketUpdateRepository = (*ticketUpdateRepository)(nil)
	_ repository.UserRepository         = (*userRepository)(nil)
	_ repository.ReferenceRepository    = (*referenceRepository)(nil)
)
