package catalog

import "time"

// Item statuses. Items toggle between the two; there is no further lifecycle.
const (
	StatusActive   = "ACTIVE"
	StatusArchived = "ARCHIVED"
)

// Item is a sellable catalog entry scoped to a branch.
type Item struct {
	ID              int64             `json:"id"`
	BranchID        int64             `json:"branch_id"`
	Name            string            `json:"name"`
	Category        string            `json:"category"`
	SKU             string            `json:"sku"`
	PriceCents      int64             `json:"price_cents"`
	DescriptionI18n map[string]string `json:"description_i18n,omitempty"`
	Status          string            `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ListFilter narrows catalog listings.
type ListFilter struct {
	BranchIDs []int64
	Status    string
	Category  string
	Query     string
	PriceMin  *int64
	PriceMax  *int64
	OrderBy   string
	Limit     int
	Offset    int
}
