package vendors

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
	vendors map[int64]Vendor
	nextID  int64
}

func (m *memStore) List(_ context.Context, _ ListFilter) ([]Vendor, int, time.Time, error) {
	return nil, 0, time.Time{}, nil
}

func (m *memStore) Get(_ context.Context, id int64) (Vendor, error) {
	v, ok := m.vendors[id]
	if !ok {
		return Vendor{}, shared.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Create(_ context.Context, v Vendor) (Vendor, error) {
	for _, existing := range m.vendors {
		if existing.Name == v.Name {
			return Vendor{}, shared.ErrDuplicate
		}
	}
	v.ID = m.nextID
	m.nextID++
	m.vendors[v.ID] = v
	return v, nil
}

func (m *memStore) Update(_ context.Context, v Vendor) (Vendor, error) {
	m.vendors[v.ID] = v
	return v, nil
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
	store := &memStore{vendors: map[int64]Vendor{}, nextID: 1}
	return NewService(store, audit.NewRecorder(writer, slog.Default())), writer
}

func claims() *shared.Claims {
	return &shared.Claims{UserID: 7}
}

func TestVendorStatusToggle(t *testing.T) {
	svc, writer := newTestService()

	v, err := svc.Create(context.Background(), claims(), VendorInput{BranchID: 2, Name: "Paper Supply Co", ContactEmail: "sales@papersupply.test"})
	require.NoError(t, err)
	require.Equal(t, StatusActive, v.Status)

	_, err = svc.Activate(context.Background(), claims(), v.ID)
	require.ErrorIs(t, err, shared.ErrValidation, "activating an active vendor is rejected")

	v, err = svc.Deactivate(context.Background(), claims(), v.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInactive, v.Status)

	_, err = svc.Deactivate(context.Background(), claims(), v.ID)
	require.ErrorIs(t, err, shared.ErrValidation, "deactivating twice is rejected")

	v, err = svc.Activate(context.Background(), claims(), v.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, v.Status)

	require.Len(t, writer.entries, 3)
	require.Equal(t, "VENDOR.DEACTIVATE", writer.entries[1].Action)
	changes, ok := writer.entries[1].Meta["changes"].(map[string]audit.Change)
	require.True(t, ok)
	require.Equal(t, audit.Change{Before: StatusActive, After: StatusInactive}, changes["status"])
}

func TestVendorUpdateRecordsDiff(t *testing.T) {
	svc, writer := newTestService()

	v, err := svc.Create(context.Background(), claims(), VendorInput{BranchID: 2, Name: "Paper Supply Co"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), claims(), v.ID, VendorInput{BranchID: 2, Name: "Paper Supply Co", ContactEmail: "hello@papersupply.test"})
	require.NoError(t, err)

	changes, ok := writer.entries[1].Meta["changes"].(map[string]audit.Change)
	require.True(t, ok)
	require.Len(t, changes, 1)
	require.Equal(t, audit.Change{Before: "", After: "hello@papersupply.test"}, changes["contact_email"])
}

func TestVendorDuplicateName(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), claims(), VendorInput{BranchID: 2, Name: "Paper Supply Co"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), claims(), VendorInput{BranchID: 2, Name: "Paper Supply Co"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestVendorValidationAndScope(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), claims(), VendorInput{BranchID: 2})
	require.ErrorIs(t, err, shared.ErrValidation)

	scoped := &shared.Claims{UserID: 7, BranchIDs: []int64{1}}
	_, err = svc.Create(context.Background(), scoped, VendorInput{BranchID: 2, Name: "Out of scope"})
	require.ErrorIs(t, err, shared.ErrBranchDenied)
}
