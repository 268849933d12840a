// Package accounting manages ledger transactions through approval and
// payment.
package accounting

import "time"

// Transaction statuses.
const (
	StatusNew      = "NEW"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
	StatusPaid     = "PAID"
)

// Transaction is a ledger entry scoped to a branch.
type Transaction struct {
	ID          int64     `json:"id"`
	BranchID    int64     `json:"branch_id"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListFilter narrows and orders a transaction listing.
type ListFilter struct {
	BranchIDs []int64
	Status    string
	OrderBy   string
	Limit     int
	Offset    int
}
