package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Writer persists entries. Satisfied by *Repository.
type Writer interface {
	Insert(ctx context.Context, entry Entry) error
}

// Recorder validates and writes audit entries.
type Recorder struct {
	writer Writer
	logger *slog.Logger
}

// NewRecorder constructs a recorder.
func NewRecorder(writer Writer, logger *slog.Logger) *Recorder {
	return &Recorder{writer: writer, logger: logger}
}

// Record persists an entry. The actor's permission snapshot is taken from
// the claims when the entry does not carry one already.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if r == nil || r.writer == nil {
		return errors.New("audit recorder not initialised")
	}
	// The entity label and id are optional; some events (logins, scans)
	// have no single subject record.
	if entry.Action == "" {
		return errors.New("audit entry requires an action")
	}
	if entry.PermsSnapshot == nil {
		if claims := shared.ClaimsFromContext(ctx); claims != nil {
			entry.PermsSnapshot = claims.Perms
			if entry.ActorID == 0 {
				entry.ActorID = claims.UserID
			}
		}
	}
	return r.writer.Insert(ctx, entry)
}

// Observe records an entry and swallows any failure after logging it, so
// the caller's primary operation cannot be failed by its audit trail.
func (r *Recorder) Observe(ctx context.Context, entry Entry) {
	if err := r.Record(ctx, entry); err != nil {
		logger := slog.Default()
		if r != nil && r.logger != nil {
			logger = r.logger
		}
		logger.Error("audit record failed",
			slog.String("action", entry.Action),
			slog.String("entity", entry.Entity),
			slog.String("entity_id", entry.EntityID),
			slog.Any("error", err))
	}
}

// Change captures one watched field's transition.
type Change struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// Diff compares before and after over the watched fields and returns the
// ones whose values actually differ. Fields absent from both snapshots are
// skipped; a field present in only one side counts as changed.
func Diff(before, after map[string]any, watched []string) map[string]Change {
	changes := make(map[string]Change)
	for _, field := range watched {
		b, hadBefore := before[field]
		a, hadAfter := after[field]
		if !hadBefore && !hadAfter {
			continue
		}
		if hadBefore && hadAfter && equalValues(b, a) {
			continue
		}
		changes[field] = Change{Before: b, After: a}
	}
	if len(changes) == 0 {
		return nil
	}
	return changes
}

// WithChanges merges a diff into an entry's meta under "changes". A nil or
// empty diff leaves meta untouched.
func WithChanges(meta map[string]any, changes map[string]Change) map[string]any {
	if len(changes) == 0 {
		return meta
	}
	if meta == nil {
		meta = make(map[string]any, 1)
	}
	meta["changes"] = changes
	return meta
}

// equalValues compares loosely across numeric kinds so an int64 snapshot
// and a float64 decoded from JSON compare equal when they denote the same
// number.
func equalValues(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b) && reflect.TypeOf(a) == reflect.TypeOf(b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
