// Package procurement manages purchase orders.
package procurement

import "time"

// PurchaseOrder statuses.
const (
	StatusDraft    = "DRAFT"
	StatusReceived = "RECEIVED"
	StatusClosed   = "CLOSED"
)

// PurchaseOrder is an inbound stock order scoped to a branch.
type PurchaseOrder struct {
	ID         int64     `json:"id"`
	BranchID   int64     `json:"branch_id"`
	VendorName string    `json:"vendor_name"`
	TotalCents int64     `json:"total_cents"`
	Status     string    `json:"status"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListFilter narrows and orders a purchase order listing.
type ListFilter struct {
	BranchIDs []int64
	Status    string
	Query     string
	OrderBy   string
	Limit     int
	Offset    int
}
