package vendors

import "time"

// Vendor statuses. Vendors toggle between the two.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Vendor is a supplier purchase orders can be raised against.
type Vendor struct {
	ID           int64     `json:"id"`
	BranchID     int64     `json:"branch_id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListFilter narrows vendor listings.
type ListFilter struct {
	BranchIDs []int64
	Status    string
	Query     string
	OrderBy   string
	Limit     int
	Offset    int
}
