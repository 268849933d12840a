package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func TestValidatorAllowsDeclaredTransitions(t *testing.T) {
	v := NewValidator(map[string][]string{
		"QUEUED":    {"STARTED"},
		"STARTED":   {"COMPLETED"},
		"COMPLETED": {},
	})

	require.True(t, v.CanTransition("QUEUED", "STARTED"))
	require.True(t, v.CanTransition("STARTED", "COMPLETED"))
	require.NoError(t, v.AssertCanTransition("QUEUED", "STARTED"))
}

func TestValidatorRejectsUndeclaredTransitions(t *testing.T) {
	v := NewValidator(map[string][]string{
		"QUEUED":    {"STARTED"},
		"STARTED":   {"COMPLETED"},
		"COMPLETED": {},
	})

	for _, pair := range [][2]string{
		{"QUEUED", "COMPLETED"},
		{"STARTED", "QUEUED"},
		{"COMPLETED", "COMPLETED"},
		{"COMPLETED", "QUEUED"},
		{"UNKNOWN", "STARTED"},
	} {
		err := v.AssertCanTransition(pair[0], pair[1])
		require.Error(t, err, "expected rejection for %s -> %s", pair[0], pair[1])
		var transition *shared.InvalidTransitionError
		require.True(t, errors.As(err, &transition))
		require.Equal(t, pair[0], transition.Current)
		require.Equal(t, pair[1], transition.Target)
	}
}

func TestValidatorAbsentKeyIsTerminal(t *testing.T) {
	v := NewValidator(map[string][]string{"A": {"B"}})
	require.False(t, v.CanTransition("B", "A"))
	require.Error(t, v.AssertCanTransition("B", "A"))
}

func TestEntityGraphsExhaustively(t *testing.T) {
	cases := []struct {
		name    string
		v       *Validator
		allowed map[string][]string
	}{
		{"orders", Orders, map[string][]string{
			"NEW":       {"APPROVED", "CANCELLED"},
			"APPROVED":  {"FULFILLED", "CANCELLED"},
			"FULFILLED": {"COMPLETED", "CANCELLED"},
		}},
		{"printjobs", PrintJobs, map[string][]string{
			"QUEUED":  {"STARTED"},
			"STARTED": {"COMPLETED"},
		}},
		{"purchase_orders", PurchaseOrders, map[string][]string{
			"DRAFT":    {"RECEIVED"},
			"RECEIVED": {"CLOSED"},
		}},
		{"repair_tickets", RepairTickets, map[string][]string{
			"NEW":         {"IN_PROGRESS", "CANCELLED"},
			"IN_PROGRESS": {"COMPLETED", "CANCELLED"},
			"COMPLETED":   {"CLOSED"},
			"CANCELLED":   {"CLOSED"},
		}},
		{"accounting_transactions", AccountingTransactions, map[string][]string{
			"NEW":      {"APPROVED", "REJECTED"},
			"APPROVED": {"PAID"},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			statuses := tc.v.Statuses()
			require.NotEmpty(t, statuses)
			allowedSet := make(map[string]map[string]bool)
			for current, targets := range tc.allowed {
				allowedSet[current] = make(map[string]bool)
				for _, target := range targets {
					allowedSet[current][target] = true
				}
			}
			// Every (current, target) pair must agree with the declared graph.
			for _, current := range statuses {
				for _, target := range statuses {
					want := allowedSet[current][target]
					require.Equal(t, want, tc.v.CanTransition(current, target),
						"%s -> %s", current, target)
					err := tc.v.AssertCanTransition(current, target)
					if want {
						require.NoError(t, err)
					} else {
						require.Error(t, err)
					}
				}
			}
		})
	}
}

func TestPrintJobFullLifecycle(t *testing.T) {
	status := "QUEUED"
	for _, next := range []string{"STARTED", "COMPLETED"} {
		require.NoError(t, PrintJobs.AssertCanTransition(status, next))
		status = next
	}
	// Completed is terminal, including a self-transition.
	require.Error(t, PrintJobs.AssertCanTransition(status, "COMPLETED"))
	require.Error(t, PrintJobs.AssertCanTransition(status, "QUEUED"))
}
