package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type stubWriter struct {
	entries []Entry
	err     error
}

func (s *stubWriter) Insert(_ context.Context, entry Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func TestRecordValidatesEntry(t *testing.T) {
	writer := &stubWriter{}
	rec := NewRecorder(writer, slog.Default())
	err := rec.Record(context.Background(), Entry{ActorID: 1, Entity: "order", EntityID: "5"})
	require.Error(t, err, "missing action")

	err = rec.Record(context.Background(), Entry{ActorID: 1, Action: "AUTH.LOGIN"})
	require.NoError(t, err, "entity label and id are optional")
	require.Len(t, writer.entries, 1)
	require.Empty(t, writer.entries[0].Entity)
	require.Empty(t, writer.entries[0].EntityID)
}

func TestRecordSnapshotsClaims(t *testing.T) {
	writer := &stubWriter{}
	rec := NewRecorder(writer, slog.Default())

	ctx := shared.ContextWithClaims(context.Background(), &shared.Claims{
		UserID: 7,
		Perms:  []string{"SALES.READ", "SALES.CREATE"},
	})
	err := rec.Record(ctx, Entry{Action: "ORDER.CREATE", Entity: "order", EntityID: "5"})
	require.NoError(t, err)
	require.Len(t, writer.entries, 1)
	require.Equal(t, int64(7), writer.entries[0].ActorID)
	require.Equal(t, []string{"SALES.READ", "SALES.CREATE"}, writer.entries[0].PermsSnapshot)
}

func TestRecordKeepsExplicitSnapshot(t *testing.T) {
	writer := &stubWriter{}
	rec := NewRecorder(writer, slog.Default())

	ctx := shared.ContextWithClaims(context.Background(), &shared.Claims{UserID: 7, Perms: []string{"SALES.READ"}})
	err := rec.Record(ctx, Entry{ActorID: 3, Action: "ORDER.CREATE", Entity: "order", EntityID: "5", PermsSnapshot: []string{"ACC.READ"}})
	require.NoError(t, err)
	require.Equal(t, int64(3), writer.entries[0].ActorID)
	require.Equal(t, []string{"ACC.READ"}, writer.entries[0].PermsSnapshot)
}

func TestObserveSwallowsFailure(t *testing.T) {
	rec := NewRecorder(&stubWriter{err: errors.New("db down")}, slog.Default())
	require.NotPanics(t, func() {
		rec.Observe(context.Background(), Entry{ActorID: 1, Action: "ORDER.CREATE", Entity: "order", EntityID: "5"})
	})
}

func TestDiff(t *testing.T) {
	before := map[string]any{"customer_name": "Ada", "total_cents": int64(1200), "status": "NEW"}
	after := map[string]any{"customer_name": "Grace", "total_cents": int64(1200), "status": "NEW"}

	changes := Diff(before, after, []string{"customer_name", "total_cents"})
	require.Len(t, changes, 1)
	require.Equal(t, Change{Before: "Ada", After: "Grace"}, changes["customer_name"])
}

func TestDiffIgnoresUnwatchedFields(t *testing.T) {
	before := map[string]any{"status": "NEW", "note": "a"}
	after := map[string]any{"status": "APPROVED", "note": "b"}
	changes := Diff(before, after, []string{"status"})
	require.Len(t, changes, 1)
	require.NotContains(t, changes, "note")
}

func TestDiffFieldAppearsOrDisappears(t *testing.T) {
	changes := Diff(map[string]any{}, map[string]any{"assigned_user_id": int64(4)}, []string{"assigned_user_id"})
	require.Equal(t, Change{Before: nil, After: int64(4)}, changes["assigned_user_id"])

	changes = Diff(map[string]any{"assigned_user_id": int64(4)}, map[string]any{}, []string{"assigned_user_id"})
	require.Equal(t, Change{Before: int64(4), After: nil}, changes["assigned_user_id"])
}

func TestDiffNumericKindsCompareEqual(t *testing.T) {
	// Values decoded from JSON come back as float64.
	changes := Diff(
		map[string]any{"total_cents": int64(1200)},
		map[string]any{"total_cents": float64(1200)},
		[]string{"total_cents"})
	require.Empty(t, changes)
}

func TestDiffEmptyResultIsNil(t *testing.T) {
	same := map[string]any{"status": "NEW"}
	require.Nil(t, Diff(same, same, []string{"status"}))
}

func TestWithChanges(t *testing.T) {
	changes := map[string]Change{"status": {Before: "NEW", After: "APPROVED"}}
	meta := WithChanges(map[string]any{"reason": "ok"}, changes)
	require.Equal(t, changes, meta["changes"])
	require.Equal(t, "ok", meta["reason"])

	require.Nil(t, WithChanges(nil, nil), "empty diff leaves nil meta nil")
}
