package model

import "time"

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleEmployee UserRole = "employee"
)

// User is the acting operator recorded on backup log entries. Authentication
// lives upstream; the core only needs identity for the audit trail.
type User struct {
	ID          int64     `json:"id"`
	WorkspaceID int64     `json:"workspace_id"`
	Username    string    `json:"username"`
	Role        UserRole  `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}
