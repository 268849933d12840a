package reports

import "time"

// StatusCounts maps a status to the number of records holding it.
type StatusCounts map[string]int

// Window restricts aggregates to records created in [Start, End).
// Nil bounds are open.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// StockSummary aggregates the product inventory.
type StockSummary struct {
	Products      int   `json:"products"`
	TotalQuantity int64 `json:"total_quantity"`
}

// Financials carries monetary aggregates. It is only populated for callers
// allowed to read the accounting domain.
type Financials struct {
	CompletedOrderCents  int64 `json:"completed_order_cents"`
	OpenPurchaseCents    int64 `json:"open_purchase_cents"`
	ApprovedUnpaidCents  int64 `json:"approved_unpaid_cents"`
	PaidTransactionCents int64 `json:"paid_transaction_cents"`
}

// Metrics is the cross-domain operational snapshot.
type Metrics struct {
	Orders         StatusCounts `json:"orders"`
	PrintJobs      StatusCounts `json:"print_jobs"`
	PurchaseOrders StatusCounts `json:"purchase_orders"`
	RepairTickets  StatusCounts `json:"repair_tickets"`
	Transactions   StatusCounts `json:"transactions"`
	Stock          StockSummary `json:"stock"`
	Financials     *Financials  `json:"financials,omitempty"`
	GeneratedAt    time.Time    `json:"generated_at"`
}
