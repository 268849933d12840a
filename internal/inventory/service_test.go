package inventory

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
	products map[int64]Product
	nextID   int64
}

func (m *memStore) List(_ context.Context, _ ListFilter) ([]Product, int, time.Time, error) {
	return nil, 0, time.Time{}, nil
}

func (m *memStore) Get(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memStore) Create(_ context.Context, p Product) (Product, error) {
	for _, existing := range m.products {
		if existing.SKU == p.SKU {
			return Product{}, shared.ErrDuplicate
		}
	}
	p.ID = m.nextID
	m.nextID++
	m.products[p.ID] = p
	return p, nil
}

func (m *memStore) AdjustQuantity(_ context.Context, id, delta int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	if p.Quantity+delta < 0 {
		return Product{}, shared.ValidationErrorf("quantity cannot go below zero")
	}
	p.Quantity += delta
	m.products[id] = p
	return p, nil
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
	store := &memStore{products: map[int64]Product{}, nextID: 1}
	return NewService(store, audit.NewRecorder(writer, slog.Default())), writer
}

func claims() *shared.Claims {
	return &shared.Claims{UserID: 7}
}

func TestProductAdjustment(t *testing.T) {
	svc, writer := newTestService()

	p, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 2, Name: "A4 paper ream", SKU: "A4-80", Quantity: 10})
	require.NoError(t, err)

	p, err = svc.Adjust(context.Background(), claims(), p.ID, -3, "damaged stock")
	require.NoError(t, err)
	require.Equal(t, int64(7), p.Quantity)

	p, err = svc.Adjust(context.Background(), claims(), p.ID, 5, "recount")
	require.NoError(t, err)
	require.Equal(t, int64(12), p.Quantity)

	require.Len(t, writer.entries, 3)
	entry := writer.entries[1]
	require.Equal(t, "PRODUCT.ADJUST", entry.Action)
	require.Equal(t, int64(-3), entry.Meta["delta"])
	require.Equal(t, "damaged stock", entry.Meta["reason"])
	changes, ok := entry.Meta["changes"].(map[string]audit.Change)
	require.True(t, ok)
	require.Equal(t, audit.Change{Before: int64(10), After: int64(7)}, changes["quantity"])
}

func TestProductAdjustmentBelowZeroRejected(t *testing.T) {
	svc, _ := newTestService()

	p, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 2, Name: "A4 paper ream", SKU: "A4-80", Quantity: 2})
	require.NoError(t, err)

	_, err = svc.Adjust(context.Background(), claims(), p.ID, -3, "shrinkage")
	require.ErrorIs(t, err, shared.ErrValidation)

	got, err := svc.Get(context.Background(), claims(), p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), got.Quantity, "rejected adjustment leaves quantity untouched")
}

func TestProductReceiveStock(t *testing.T) {
	svc, writer := newTestService()

	p, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 2, Name: "Toner cartridge", SKU: "TN-660"})
	require.NoError(t, err)

	p, err = svc.ReceiveStock(context.Background(), claims(), p.ID, 24, 9)
	require.NoError(t, err)
	require.Equal(t, int64(24), p.Quantity)

	entry := writer.entries[1]
	require.Equal(t, "PRODUCT.RECEIVE", entry.Action)
	require.Equal(t, int64(9), entry.Meta["purchase_order_id"])

	_, err = svc.ReceiveStock(context.Background(), claims(), p.ID, 0, 9)
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.ReceiveStock(context.Background(), claims(), p.ID, -4, 9)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestProductValidation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 2, SKU: "X"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), claims(), CreateInput{BranchID: 2, Name: "X"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), claims(), CreateInput{BranchID: 2, Name: "X", SKU: "X", Quantity: -1})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), claims(), CreateInput{
		BranchID: 2, Name: "X", SKU: "X2",
		DescriptionI18n: map[string]string{"??": "bad"},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestProductBranchScope(t *testing.T) {
	svc, _ := newTestService()

	p, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 2, Name: "A4 paper ream", SKU: "A4-80", Quantity: 1})
	require.NoError(t, err)

	scoped := &shared.Claims{UserID: 7, BranchIDs: []int64{1}}
	_, err = svc.Adjust(context.Background(), scoped, p.ID, 1, "")
	require.ErrorIs(t, err, shared.ErrBranchDenied)
}
