package domain

import "time"

// ReferenceKind identifies a reference-data table.
type ReferenceKind string

const (
	ReferenceCategory   ReferenceKind = "category"
	ReferenceDepartment ReferenceKind = "department"
	ReferenceLocation   ReferenceKind = "location"
)

// Reference is a category, department or location row.
type Reference struct {
	Kind ReferenceKind
	ID   string
	Name string
	// ParentID is the owning department of a location.
	ParentID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
