package repairs

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
	tickets map[int64]RepairTicket
	nextID  int64
}

func (m *memStore) List(_ context.Context, _ ListFilter) ([]RepairTicket, int, time.Time, error) {
	return nil, 0, time.Time{}, nil
}

func (m *memStore) Get(_ context.Context, id int64) (RepairTicket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return RepairTicket{}, shared.ErrNotFound
	}
	return t, nil
}

func (m *memStore) Create(_ context.Context, t RepairTicket) (RepairTicket, error) {
	t.ID = m.nextID
	m.nextID++
	m.tickets[t.ID] = t
	return t, nil
}

func (m *memStore) Update(_ context.Context, t RepairTicket) (RepairTicket, error) {
	m.tickets[t.ID] = t
	return t, nil
}

type nullWriter struct{}

func (nullWriter) Insert(_ context.Context, _ audit.Entry) error { return nil }

func newTestService() *Service {
	store := &memStore{tickets: map[int64]RepairTicket{}, nextID: 1}
	return NewService(store, audit.NewRecorder(nullWriter{}, slog.Default()))
}

func claims() *shared.Claims {
	return &shared.Claims{UserID: 7}
}

func create(t *testing.T, svc *Service) RepairTicket {
	t.Helper()
	ticket, err := svc.Create(context.Background(), claims(), CreateInput{
		BranchID: 2, CustomerName: "Ada", DeviceType: "laptop", IssueSummary: "no boot",
	})
	require.NoError(t, err)
	return ticket
}

func TestTicketHappyPath(t *testing.T) {
	svc := newTestService()
	ticket := create(t, svc)
	require.Equal(t, StatusNew, ticket.Status)

	ticket, err := svc.Start(context.Background(), claims(), ticket.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, ticket.Status)
	require.Equal(t, int64(7), *ticket.AssignedUserID)

	ticket, err = svc.Complete(context.Background(), claims(), ticket.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, ticket.Status)

	ticket, err = svc.CloseTicket(context.Background(), claims(), ticket.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, ticket.Status)
}

func TestTicketCancelPath(t *testing.T) {
	svc := newTestService()
	ticket := create(t, svc)

	ticket, err := svc.Cancel(context.Background(), claims(), ticket.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, ticket.Status)

	// Cancelled tickets can still be closed out.
	ticket, err = svc.CloseTicket(context.Background(), claims(), ticket.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, ticket.Status)
}

func TestTicketInvalidTransitions(t *testing.T) {
	svc := newTestService()
	ticket := create(t, svc)

	var invalid *shared.InvalidTransitionError
	_, err := svc.Complete(context.Background(), claims(), ticket.ID)
	require.ErrorAs(t, err, &invalid, "NEW cannot complete")

	_, err = svc.CloseTicket(context.Background(), claims(), ticket.ID)
	require.ErrorAs(t, err, &invalid, "NEW cannot close")

	_, err = svc.CloseTicket(context.Background(), claims(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTicketValidation(t *testing.T) {
	svc := newTestService()

	_, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 2, CustomerName: "Ada"})
	require.ErrorIs(t, err, shared.ErrValidation, "device_type required")
}
