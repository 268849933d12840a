package inventory

import "time"

// Product is a stocked item tracked per branch.
type Product struct {
	ID              int64             `json:"id"`
	BranchID        int64             `json:"branch_id"`
	Name            string            `json:"name"`
	SKU             string            `json:"sku"`
	Quantity        int64             `json:"quantity"`
	DescriptionI18n map[string]string `json:"description_i18n,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	BranchIDs []int64
	Query     string
	OrderBy   string
	Limit     int
	Offset    int
}
