package gormstore

import (
	"time"

	"github.com/benleytuano/ts-api-service/internal/domain"
)

type userRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Role:      domain.Role(r.Role),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func userFromDomain(u *domain.User) userRow {
	return userRow{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type categoryRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (categoryRow) TableName() string { return "categories" }

type departmentRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (departmentRow) TableName() string { return "departments" }

type locationRow struct {
	ID           string `gorm:"primaryKey"`
	DepartmentID *string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (locationRow) TableName() string { return "locations" }

type ticketRow struct {
	ID               string `gorm:"primaryKey"`
	RequesterID      string
	AssigneeID       *string
	AssignedAt       *time.Time
	Title            string
	Description      string
	CategoryID       string
	DepartmentID     *string
	LocationID       *string
	Priority         string
	Status           string
	ContactNumber    *string
	PatientName      *string
	EquipmentDetails *string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Requester  userRow        `gorm:"foreignKey:RequesterID"`
	Assignee   *userRow       `gorm:"foreignKey:AssigneeID"`
	Category   categoryRow    `gorm:"foreignKey:CategoryID"`
	Department *departmentRow `gorm:"foreignKey:DepartmentID"`
	Location   *locationRow   `gorm:"foreignKey:LocationID"`
}

func (ticketRow) TableName() string { return "tickets" }

func ticketFromDomain(t *domain.Ticket) ticketRow {
	return ticketRow{
		ID:               t.ID,
		RequesterID:      t.RequesterID,
		AssigneeID:       t.AssigneeID,
		AssignedAt:       t.AssignedAt,
		Title:            t.Title,
		Description:      t.Description,
		CategoryID:       t.CategoryID,
		DepartmentID:     t.DepartmentID,
		LocationID:       t.LocationID,
		Priority:         string(t.Priority),
		Status:           string(t.Status),
		ContactNumber:    t.ContactNumber,
		PatientName:      t.PatientName,
		EquipmentDetails: t.EquipmentDetails,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func (r ticketRow) toDomain() domain.Ticket {
	ticket := domain.Ticket{
		ID:               r.ID,
		RequesterID:      r.RequesterID,
		AssigneeID:       r.AssigneeID,
		AssignedAt:       r.AssignedAt,
		Title:            r.Title,
		Description:      r.Description,
		CategoryID:       r.CategoryID,
		DepartmentID:     r.DepartmentID,
		LocationID:       r.LocationID,
		Priority:         domain.TicketPriority(r.Priority),
		Status:           domain.TicketStatus(r.Status),
		ContactNumber:    r.ContactNumber,
		PatientName:      r.PatientName,
		EquipmentDetails: r.EquipmentDetails,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.Requester.ID != "" {
		requester := r.Requester.toDomain()
		ticket.Requester = &requester
	}
	if r.Assignee != nil {
		assignee := r.Assignee.toDomain()
		ticket.Assignee = &assignee
	}
	if r.Category.ID != "" {
		ticket.Category = &domain.Reference{Kind: domain.ReferenceCategory, ID: r.Category.ID, Name: r.Category.Name}
	}
	if r.Department != nil {
		ticket.Department = &domain.Reference{Kind: domain.ReferenceDepartment, ID: r.Department.ID, Name: r.Department.Name}
	}
	if r.Location != nil {
		ticket.Location = &domain.Reference{
			Kind:     domain.ReferenceLocation,
			ID:       r.Location.ID,
			Name:     r.Location.Name,
			ParentID: r.Location.DepartmentID,
		}
	}
	return ticket
}

type ticketUpdateRow struct {
	ID         string `gorm:"primaryKey"`
	TicketID   string
	AuthorID   string
	Message    string
	Type       string
	IsInternal bool
	OldValue   *string
	NewValue   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Author userRow `gorm:"foreignKey:AuthorID"`
}

func (ticketUpdateRow) TableName() string { return "ticket_updates" }

func (r ticketUpdateRow) toDomain() domain.TicketUpdate {
	update := domain.TicketUpdate{
		ID:         r.ID,
		TicketID:   r.TicketID,
		AuthorID:   r.AuthorID,
		Message:    r.Message,
		Type:       domain.TicketUpdateType(r.Type),
		IsInternal: r.IsInternal,
		OldValue:   r.OldValue,
		NewValue:   r.NewValue,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Author.ID != "" {
		author := r.Author.toDomain()
		update.Author = &author
	}
	return update
}
