package domain

import "time"

// User represents a registered user. Authorization decisions live outside the
// core; users are only loaded to stamp actor fields and validate departments.
type User struct {
	ID           string
	Name         string
	Email        string
	Token        string
	DepartmentID *string
	Roles        []string
	IsActive     bool
	CreatedAt    time.Time
}

// HasDepartment returns true if the user belongs to a department.
func (u *User) HasDepartment() bool {
	return u.DepartmentID != nil && *u.DepartmentID != ""
}
