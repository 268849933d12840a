// Package iam administers roles, permissions, groups and user assignments.
package iam

import "time"

// UserSummary is the admin-facing view of an account.
type UserSummary struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	RoleIDs   []int64   `json:"role_ids"`
	GroupIDs  []int64   `json:"group_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
