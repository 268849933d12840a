package lifecycle

// Order lifecycle: NEW -> APPROVED -> FULFILLED -> COMPLETED, with
// cancellation allowed until completed.
var Orders = NewValidator(map[string][]string{
	"NEW":       {"APPROVED", "CANCELLED"},
	"APPROVED":  {"FULFILLED", "CANCELLED"},
	"FULFILLED": {"COMPLETED", "CANCELLED"},
	"COMPLETED": {},
	"CANCELLED": {},
})

// PrintJobs lifecycle: QUEUED -> STARTED -> COMPLETED.
var PrintJobs = NewValidator(map[string][]string{
	"QUEUED":    {"STARTED"},
	"STARTED":   {"COMPLETED"},
	"COMPLETED": {},
})

// PurchaseOrders lifecycle: DRAFT -> RECEIVED -> CLOSED.
var PurchaseOrders = NewValidator(map[string][]string{
	"DRAFT":    {"RECEIVED"},
	"RECEIVED": {"CLOSED"},
	"CLOSED":   {},
})

// RepairTickets lifecycle: NEW -> IN_PROGRESS -> COMPLETED -> CLOSED, with
// CANCELLED as an alternative path that still closes.
var RepairTickets = NewValidator(map[string][]string{
	"NEW":         {"IN_PROGRESS", "CANCELLED"},
	"IN_PROGRESS": {"COMPLETED", "CANCELLED"},
	"COMPLETED":   {"CLOSED"},
	"CANCELLED":   {"CLOSED"},
	"CLOSED":      {},
})

// AccountingTransactions lifecycle: NEW -> APPROVED -> PAID, or NEW -> REJECTED.
var AccountingTransactions = NewValidator(map[string][]string{
	"NEW":      {"APPROVED", "REJECTED"},
	"APPROVED": {"PAID"},
	"PAID":     {},
	"REJECTED": {},
})

// CatalogItem and Vendor statuses are two-state toggles with idempotency
// checks at the call site; they intentionally do not use a Validator.
