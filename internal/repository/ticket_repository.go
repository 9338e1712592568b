package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benleytuano/ts-api-service/internal/domain"
)

// ticketSelect hydrates requester, assignee and reference rows in the same round trip.
const ticketSelect = `
        SELECT t.id, t.requester_id, t.assignee_id, t.assigned_at, t.title, t.description,
               t.category_id, t.department_id, t.location_id, t.priority, t.status,
               t.contact_number, t.patient_name, t.equipment_details, t.created_at, t.updated_at,
               r.name, r.email, r.role, r.created_at, r.updated_at,
               a.name, a.email, a.role, a.created_at, a.updated_at,
               c.name, d.name, l.name, l.department_id
        FROM tickets t
        JOIN users r ON r.id = t.requester_id
        LEFT JOIN users a ON a.id = t.assignee_id
        JOIN categories c ON c.id = t.category_id
        LEFT JOIN departments d ON d.id = t.department_id
        LEFT JOIN locations l ON l.id = t.location_id`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres ticket store.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = NewID()
	}
	StampTimes(&ticket.CreatedAt, &ticket.UpdatedAt, time.Now().UTC())

	const query = `
        INSERT INTO tickets (id, requester_id, assignee_id, assigned_at, title, description, category_id,
            department_id, location_id, priority, status, contact_number, patient_name, equipment_details,
            created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.RequesterID,
		ticket.AssigneeID,
		ticket.AssignedAt,
		ticket.Title,
		ticket.Description,
		ticket.CategoryID,
		ticket.DepartmentID,
		ticket.LocationID,
		string(ticket.Priority),
		string(ticket.Status),
		ticket.ContactNumber,
		ticket.PatientName,
		ticket.EquipmentDetails,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return translatePgError(err, ErrInvalidReference)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, ticketSelect+` WHERE t.id=$1`, id))
	if err != nil {
		return nil, translatePgError(err, ErrInvalidReference)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("t.requester_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("t.assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, StatusStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("t.status = ANY($%d)", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.created_at DESC, t.id DESC`, ticketSelect, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translatePgError(err, ErrInvalidReference)
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ConditionalUpdate(ctx context.Context, id string, guard TicketGuard, change TicketChange) (int64, error) {
	if err := change.Validate(); err != nil {
		return 0, err
	}
	if change.UpdatedAt.IsZero() {
		change.UpdatedAt = time.Now().UTC()
	}

	args := []any{id}
	sets := []string{}
	if a := change.Assignment; a != nil {
		if a.AssigneeID == "" {
			sets = append(sets, "assignee_id=NULL", "assigned_at=NULL")
		} else {
			args = append(args, a.AssigneeID)
			sets = append(sets, fmt.Sprintf("assignee_id=$%d", len(args)))
			args = append(args, a.At)
			sets = append(sets, fmt.Sprintf("assigned_at=$%d", len(args)))
		}
	}
	if change.Status != nil {
		args = append(args, string(*change.Status))
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)))
	}
	args = append(args, change.UpdatedAt)
	sets = append(sets, fmt.Sprintf("updated_at=$%d", len(args)))

	clauses := []string{"id=$1"}
	if guard.Unassigned {
		clauses = append(clauses, "assignee_id IS NULL")
	}
	if guard.AssigneeID != nil {
		args = append(args, *guard.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(guard.Statuses) > 0 {
		args = append(args, StatusStrings(guard.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE %s`, strings.Join(sets, ", "), strings.Join(clauses, " AND "))
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, translatePgError(err, ErrInvalidReference)
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return translatePgError(err, ErrStillReferenced)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket           domain.Ticket
		priority, status string
		requester        domain.User
		requesterRole    string
		assigneeName     *string
		assigneeEmail    *string
		assigneeRole     *string
		assigneeCreated  *time.Time
		assigneeUpdated  *time.Time
		categoryName     string
		departmentName   *string
		locationName     *string
		locationParent   *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.RequesterID,
		&ticket.AssigneeID,
		&ticket.AssignedAt,
		&ticket.Title,
		&ticket.Description,
		&ticket.CategoryID,
		&ticket.DepartmentID,
		&ticket.LocationID,
		&priority,
		&status,
		&ticket.ContactNumber,
		&ticket.PatientName,
		&ticket.EquipmentDetails,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&requester.Name,
		&requester.Email,
		&requesterRole,
		&requester.CreatedAt,
		&requester.UpdatedAt,
		&assigneeName,
		&assigneeEmail,
		&assigneeRole,
		&assigneeCreated,
		&assigneeUpdated,
		&categoryName,
		&departmentName,
		&locationName,
		&locationParent,
	); err != nil {
		return nil, err
	}

	ticket.Priority = domain.TicketPriority(priority)
	ticket.Status = domain.TicketStatus(status)

	requester.ID = ticket.RequesterID
	requester.Role = domain.Role(requesterRole)
	ticket.Requester = &requester

	if ticket.AssigneeID != nil && assigneeName != nil {
		assignee := &domain.User{ID: *ticket.AssigneeID, Name: *assigneeName}
		if assigneeEmail != nil {
			assignee.Email = *assigneeEmail
		}
		if assigneeRole != nil {
			assignee.Role = domain.Role(*assigneeRole)
		}
		if assigneeCreated != nil {
			assignee.CreatedAt = *assigneeCreated
		}
		if assigneeUpdated != nil {
			assignee.UpdatedAt = *assigneeUpdated
		}
		ticket.Assignee = assignee
	}

	ticket.Category = &domain.Reference{Kind: domain.ReferenceCategory, ID: ticket.CategoryID, Name: categoryName}
	if ticket.DepartmentID != nil && departmentName != nil {
		ticket.Department = &domain.Reference{Kind: domain.ReferenceDepartment, ID: *ticket.DepartmentID, Name: *departmentName}
	}
	if ticket.LocationID != nil && locationName != nil {
		ticket.Location = &domain.Reference{Kind: domain.ReferenceLocation, ID: *ticket.LocationID, Name: *locationName, ParentID: locationParent}
	}
	return &ticket, nil
}
