package jobs

import (
	"context"
	"log/slog"
	"slices"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/authz"
)

// PermissionCatalog exposes the stored permission codes. Satisfied by
// *authz.Repository.
type PermissionCatalog interface {
	AllPermissionCodes(ctx context.Context) ([]string, error)
}

// AuthzIntegrityJob compares the seeded permission rows against the code
// catalog and reports drift in either direction. Drift means the seeder
// has not run after a catalog change, or rows were edited by hand.
type AuthzIntegrityJob struct {
	catalog PermissionCatalog
	logger  *slog.Logger
}

// NewAuthzIntegrityJob constructs the drift scan job.
func NewAuthzIntegrityJob(catalog PermissionCatalog, logger *slog.Logger) *AuthzIntegrityJob {
	return &AuthzIntegrityJob{catalog: catalog, logger: logger}
}

// Handle processes TaskAuthzIntegrity tasks.
func (j *AuthzIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) error {
	stored, err := j.catalog.AllPermissionCodes(ctx)
	if err != nil {
		return err
	}

	expected := authz.AllCodes()
	missing := difference(expected, stored)
	unknown := difference(stored, expected)

	if len(missing) == 0 && len(unknown) == 0 {
		j.logger.Info("permission catalog in sync", slog.Int("codes", len(expected)))
		return nil
	}
	if len(missing) > 0 {
		j.logger.Warn("permission codes missing from the database",
			slog.Any("codes", missing))
	}
	if len(unknown) > 0 {
		j.logger.Warn("database holds permission codes outside the catalog",
			slog.Any("codes", unknown))
	}
	return nil
}

// difference returns the elements of a that are not in b.
func difference(a, b []string) []string {
	var out []string
	for _, code := range a {
		if !slices.Contains(b, code) {
			out = append(out, code)
		}
	}
	return out
}
