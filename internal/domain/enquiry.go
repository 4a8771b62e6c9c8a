package domain

import "time"

// Enquiry is the business entity whose lifecycle status is projected from
// the completion state of its attached tasks. The core only ever reads and
// rewrites its status column.
type Enquiry struct {
	ID        string
	Title     string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
