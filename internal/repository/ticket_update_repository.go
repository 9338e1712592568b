package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benleytuano/ts-api-service/internal/domain"
)

type ticketUpdateRepository struct {
	pool *pgxpool.Pool
}

// NewTicketUpdateRepository builds the Postgres update trail.
func NewTicketUpdateRepository(pool *pgxpool.Pool) TicketUpdateRepository {
	return &ticketUpdateRepository{pool: pool}
}

func (r *ticketUpdateRepository) Append(ctx context.Context, update *domain.TicketUpdate) error {
	if update.ID == "" {
		update.ID = NewID()
	}
	StampTimes(&update.CreatedAt, &update.UpdatedAt, time.Now().UTC())

	const query = `
        INSERT INTO ticket_updates (id, ticket_id, author_id, message, type, is_internal, old_value, new_value,
            created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.pool.Exec(ctx, query,
		update.ID,
		update.TicketID,
		update.AuthorID,
		update.Message,
		string(update.Type),
		update.IsInternal,
		update.OldValue,
		update.NewValue,
		update.CreatedAt,
		update.UpdatedAt,
	)
	return translatePgError(err, ErrInvalidReference)
}

func (r *ticketUpdateRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketUpdate, error) {
	const query = `
        SELECT u.id, u.ticket_id, u.author_id, u.message, u.type, u.is_internal, u.old_value, u.new_value,
               u.created_at, u.updated_at,
               a.name, a.email, a.role, a.created_at, a.updated_at
        FROM ticket_updates u
        JOIN users a ON a.id = u.author_id
        WHERE u.ticket_id=$1 AND ($2::boolean OR NOT u.is_internal)
        ORDER BY u.created_at ASC, u.id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID, includeInternal)
	if err != nil {
		return nil, translatePgError(err, ErrInvalidReference)
	}
	defer rows.Close()

	result := []domain.TicketUpdate{}
	for rows.Next() {
		var (
			update     domain.TicketUpdate
			kind       string
			author     domain.User
			authorRole string
		)
		if err := rows.Scan(
			&update.ID,
			&update.TicketID,
			&update.AuthorID,
			&update.Message,
			&kind,
			&update.IsInternal,
			&update.OldValue,
			&update.NewValue,
			&update.CreatedAt,
			&update.UpdatedAt,
			&author.Name,
			&author.Email,
			&authorRole,
			&author.CreatedAt,
			&author.UpdatedAt,
		); err != nil {
			return nil, err
		}
		update.Type = domain.TicketUpdateType(kind)
		author.ID = update.AuthorID
		author.Role = domain.Role(authorRole)
		update.Author = &author
		result = append(result, update)
	}
	return result, rows.Err()
}
