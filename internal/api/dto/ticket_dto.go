package dto

import (
	"time"

	"github.com/benleytuano/ts-api-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	CategoryID       string  `json:"category_id"`
	DepartmentID     *string `json:"department_id"`
	LocationID       *string `json:"location_id"`
	Priority         string  `json:"priority"`
	ContactNumber    *string `json:"contact_number"`
	PatientName      *string `json:"patient_name"`
	EquipmentDetails *string `json:"equipment_details"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// CreateUpdateRequest payload for a manual trail entry.
type CreateUpdateRequest struct {
	Message    string  `json:"message"`
	Type       string  `json:"type"`
	IsInternal bool    `json:"is_internal"`
	OldValue   *string `json:"old_value"`
	NewValue   *string `json:"new_value"`
}

// ReferenceSummary names a category, department or location.
type ReferenceSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
}

// TicketResponse is the hydrated ticket view.
type TicketResponse struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	RequesterID      string                `json:"requester_id"`
	AssigneeID       *string               `json:"assignee_id"`
	AssignedAt       *time.Time            `json:"assigned_at"`
	CategoryID       string                `json:"category_id"`
	DepartmentID     *string               `json:"department_id"`
	LocationID       *string               `json:"location_id"`
	ContactNumber    *string               `json:"contact_number"`
	PatientName      *string               `json:"patient_name"`
	EquipmentDetails *string               `json:"equipment_details"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`

	Requester  *UserSummary      `json:"requester,omitempty"`
	Assignee   *UserSummary      `json:"assignee,omitempty"`
	Category   *ReferenceSummary `json:"category,omitempty"`
	Department *ReferenceSummary `json:"department,omitempty"`
	Location   *ReferenceSummary `json:"location,omitempty"`
}

// TicketUpdateResponse represents one trail entry.
type TicketUpdateResponse struct {
	ID         string                  `json:"id"`
	TicketID   string                  `json:"ticket_id"`
	Message    string                  `json:"message"`
	Type       domain.TicketUpdateType `json:"type"`
	IsInternal bool                    `json:"is_internal"`
	OldValue   *string                 `json:"old_value"`
	NewValue   *string                 `json:"new_value"`
	CreatedAt  time.Time               `json:"created_at"`
	Author     *UserSummary            `json:"author,omitempty"`
}

// NewTicketResponse maps a ticket and whichever relations were loaded.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:               ticket.ID,
		Title:            ticket.Title,
		Description:      ticket.Description,
		Status:           ticket.Status,
		Priority:         ticket.Priority,
		RequesterID:      ticket.RequesterID,
		AssigneeID:       ticket.AssigneeID,
		AssignedAt:       ticket.AssignedAt,
		CategoryID:       ticket.CategoryID,
		DepartmentID:     ticket.DepartmentID,
		LocationID:       ticket.LocationID,
		ContactNumber:    ticket.ContactNumber,
		PatientName:      ticket.PatientName,
		EquipmentDetails: ticket.EquipmentDetails,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
		Requester:        NewUserSummary(ticket.Requester),
		Assignee:         NewUserSummary(ticket.Assignee),
		Category:         newReferenceSummary(ticket.Category),
		Department:       newReferenceSummary(ticket.Department),
		Location:         newReferenceSummary(ticket.Location),
	}
}

// NewTicketUpdateResponse maps a trail entry.
func NewTicketUpdateResponse(update *domain.TicketUpdate) TicketUpdateResponse {
	return TicketUpdateResponse{
		ID:         update.ID,
		TicketID:   update.TicketID,
		Message:    update.Message,
		Type:       update.Type,
		IsInternal: update.IsInternal,
		OldValue:   update.OldValue,
		NewValue:   update.NewValue,
		CreatedAt:  update.CreatedAt,
		Author:     NewUserSummary(update.Author),
	}
}

func newReferenceSummary(ref *domain.Reference) *ReferenceSummary {
	if ref == nil {
		return nil
	}
	return &ReferenceSummary{ID: ref.ID, Name: ref.Name, ParentID: ref.ParentID}
}
