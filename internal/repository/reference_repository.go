package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benleytuano/ts-api-service/internal/domain"
)

type referenceRepository struct {
	pool *pgxpool.Pool
}

// NewReferenceRepository builds the repository for categories, departments and locations.
func NewReferenceRepository(pool *pgxpool.Pool) ReferenceRepository {
	return &referenceRepository{pool: pool}
}

// ReferenceTable resolves the table holding a reference kind.
func ReferenceTable(kind domain.ReferenceKind) (string, error) {
	switch kind {
	case domain.ReferenceCategory:
		return "categories", nil
	case domain.ReferenceDepartment:
		return "departments", nil
	case domain.ReferenceLocation:
		return "locations", nil
	default:
		return "", fmt.Errorf("unknown reference kind %q", kind)
	}
}

func (r *referenceRepository) Create(ctx context.Context, ref *domain.Reference) error {
	table, err := ReferenceTable(ref.Kind)
	if err != nil {
		return err
	}
	if ref.ID == "" {
		ref.ID = NewID()
	}
	StampTimes(&ref.CreatedAt, &ref.UpdatedAt, time.Now().UTC())

	if ref.Kind == domain.ReferenceLocation {
		const query = `
        INSERT INTO locations (id, department_id, name, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5)`
		_, err = r.pool.Exec(ctx, query, ref.ID, ref.ParentID, ref.Name, ref.CreatedAt, ref.UpdatedAt)
		return translatePgError(err, ErrInvalidReference)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, name, created_at, updated_at) VALUES ($1,$2,$3,$4)`, table)
	_, err = r.pool.Exec(ctx, query, ref.ID, ref.Name, ref.CreatedAt, ref.UpdatedAt)
	return translatePgError(err, ErrInvalidReference)
}

func (r *referenceRepository) Get(ctx context.Context, kind domain.ReferenceKind, id string) (*domain.Reference, error) {
	query, err := referenceSelect(kind)
	if err != nil {
		return nil, err
	}
	ref, err := scanReference(kind, r.pool.QueryRow(ctx, query+` WHERE id=$1`, id))
	if err != nil {
		return nil, translatePgError(err, ErrInvalidReference)
	}
	return ref, nil
}

func (r *referenceRepository) List(ctx context.Context, kind domain.ReferenceKind) ([]domain.Reference, error) {
	query, err := referenceSelect(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query+` ORDER BY name ASC`)
	if err != nil {
		return nil, translatePgError(err, ErrInvalidReference)
	}
	defer rows.Close()

	result := []domain.Reference{}
	for rows.Next() {
		ref, err := scanReference(kind, rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ref)
	}
	return result, rows.Err()
}

func referenceSelect(kind domain.ReferenceKind) (string, error) {
	table, err := ReferenceTable(kind)
	if err != nil {
		return "", err
	}
	if kind == domain.ReferenceLocation {
		return `SELECT id, name, department_id, created_at, updated_at FROM locations`, nil
	}
	return fmt.Sprintf(`SELECT id, name, NULL::uuid, created_at, updated_at FROM %s`, table), nil
}

func scanReference(kind domain.ReferenceKind, row pgx.Row) (*domain.Reference, error) {
	ref := domain.Reference{Kind: kind}
	if err := row.Scan(&ref.ID, &ref.Name, &ref.ParentID, &ref.CreatedAt, &ref.UpdatedAt); err != nil {
		return nil, err
	}
	return &ref, nil
}
