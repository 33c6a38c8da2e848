package model

import "time"

// Workspace is a tenant boundary. Every customer, step record, and backup log
// row is scoped to exactly one workspace.
type Workspace struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
