package accounting

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memStore struct {
	txs    map[int64]Transaction
	nextID int64
}

func (m *memStore) List(_ context.Context, _ ListFilter) ([]Transaction, int, time.Time, error) {
	return nil, 0, time.Time{}, nil
}

func (m *memStore) Get(_ context.Context, id int64) (Transaction, error) {
	tx, ok := m.txs[id]
	if !ok {
		return Transaction{}, shared.ErrNotFound
	}
	return tx, nil
}

func (m *memStore) Create(_ context.Context, tx Transaction) (Transaction, error) {
	tx.ID = m.nextID
	m.nextID++
	m.txs[tx.ID] = tx
	return tx, nil
}

func (m *memStore) Update(_ context.Context, tx Transaction) (Transaction, error) {
	m.txs[tx.ID] = tx
	return tx, nil
}

type captureWriter struct {
	entries []audit.Entry
}

func (c *captureWriter) Insert(_ context.Context, entry audit.Entry) error {
	c.entries = append(c.entries, entry)
	return nil
}

func newTestService() (*Service, *captureWriter) {
	writer := &captureWriter{}
	store := &memStore{txs: map[int64]Transaction{}, nextID: 1}
	return NewService(store, audit.NewRecorder(writer, slog.Default())), writer
}

func claims() *shared.Claims {
	return &shared.Claims{UserID: 7}
}

func scopedClaims(branches ...int64) *shared.Claims {
	return &shared.Claims{UserID: 7, BranchIDs: branches}
}

func TestTransactionApprovalAndPayment(t *testing.T) {
	svc, writer := newTestService()

	tx, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 3, Description: "Rent March", AmountCents: 250000})
	require.NoError(t, err)
	require.Equal(t, StatusNew, tx.Status)
	require.Equal(t, int64(7), tx.CreatedBy)

	tx, err = svc.Approve(context.Background(), claims(), tx.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, tx.Status)

	tx, err = svc.Pay(context.Background(), claims(), tx.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, tx.Status)

	require.Len(t, writer.entries, 3)
	require.Equal(t, "TX.APPROVE", writer.entries[1].Action)
	require.Equal(t, "TX.PAY", writer.entries[2].Action)

	changes, ok := writer.entries[2].Meta["changes"].(map[string]audit.Change)
	require.True(t, ok)
	require.Equal(t, audit.Change{Before: StatusApproved, After: StatusPaid}, changes["status"])
}

func TestTransactionRejection(t *testing.T) {
	svc, _ := newTestService()

	tx, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 3, Description: "Duplicate invoice", AmountCents: 9900})
	require.NoError(t, err)

	tx, err = svc.Reject(context.Background(), claims(), tx.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, tx.Status)

	var invalid *shared.InvalidTransitionError
	_, err = svc.Pay(context.Background(), claims(), tx.ID)
	require.ErrorAs(t, err, &invalid, "rejected transactions cannot be paid")
	_, err = svc.Approve(context.Background(), claims(), tx.ID)
	require.ErrorAs(t, err, &invalid, "rejected is terminal")
}

func TestTransactionPayRequiresApproval(t *testing.T) {
	svc, _ := newTestService()

	tx, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 3, Description: "Supplies", AmountCents: 4200})
	require.NoError(t, err)

	var invalid *shared.InvalidTransitionError
	_, err = svc.Pay(context.Background(), claims(), tx.ID)
	require.ErrorAs(t, err, &invalid)
}

func TestTransactionValidation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 3, AmountCents: 100})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), claims(), CreateInput{BranchID: 3, Description: "Zero"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestTransactionBranchScope(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), scopedClaims(1, 2), CreateInput{BranchID: 3, Description: "Out of scope", AmountCents: 100})
	require.ErrorIs(t, err, shared.ErrBranchDenied)

	tx, err := svc.Create(context.Background(), scopedClaims(3), CreateInput{BranchID: 3, Description: "In scope", AmountCents: 100})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), scopedClaims(1), tx.ID)
	require.ErrorIs(t, err, shared.ErrBranchDenied)
}
