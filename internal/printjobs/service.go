package printjobs

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Store is the persistence surface. Satisfied by *Repository.
type Store interface {
	List(ctx context.Context, f ListFilter) ([]PrintJob, int, time.Time, error)
	Get(ctx context.Context, id int64) (PrintJob, error)
	Create(ctx context.Context, j PrintJob) (PrintJob, error)
	Update(ctx context.Context, j PrintJob) (PrintJob, error)
}

var watchedFields = []string{"status", "assigned_user_id"}

// Service implements print job business rules.
type Service struct {
	store    Store
	recorder *audit.Recorder
	fsm      *lifecycle.Validator
}

// NewService constructs a service.
func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, recorder: recorder, fsm: lifecycle.PrintJobs}
}

// List returns jobs visible within the caller's branch scope.
func (s *Service) List(ctx context.Context, claims *shared.Claims, f ListFilter) ([]PrintJob, int, time.Time, error) {
	return s.store.List(ctx, f)
}

// Get returns one job after asserting branch access.
func (s *Service) Get(ctx context.Context, claims *shared.Claims, id int64) (PrintJob, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return PrintJob{}, err
	}
	if err := authz.AssertBranchAccess(claims, job.BranchID); err != nil {
		return PrintJob{}, err
	}
	return job, nil
}

// CreateInput carries the fields of a new job.
type CreateInput struct {
	BranchID  int64
	ProductID *int64
}

// Create enqueues a job in status QUEUED.
func (s *Service) Create(ctx context.Context, claims *shared.Claims, in CreateInput) (PrintJob, error) {
	if err := authz.AssertBranchAccess(claims, in.BranchID); err != nil {
		return PrintJob{}, err
	}
	job, err := s.store.Create(ctx, PrintJob{
		BranchID:  in.BranchID,
		ProductID: in.ProductID,
		Status:    StatusQueued,
		CreatedBy: claims.UserID,
	})
	if err != nil {
		return PrintJob{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "PRINTJOB.CREATE", Entity: "print_job", EntityID: entityID(job.ID),
		Meta: map[string]any{"branch_id": job.BranchID},
	})
	return job, nil
}

// Start moves a job QUEUED -> STARTED and assigns it to the acting user.
func (s *Service) Start(ctx context.Context, claims *shared.Claims, id int64) (PrintJob, error) {
	job, err := s.Get(ctx, claims, id)
	if err != nil {
		return PrintJob{}, err
	}
	if err := s.fsm.AssertCanTransition(job.Status, StatusStarted); err != nil {
		return PrintJob{}, err
	}

	before := snapshot(job)
	job.Status = StatusStarted
	actor := claims.UserID
	job.AssignedUserID = &actor
	updated, err := s.store.Update(ctx, job)
	if err != nil {
		return PrintJob{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "PRINTJOB.START", Entity: "print_job", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, audit.Diff(before, snapshot(updated), watchedFields)),
	})
	return updated, nil
}

// Complete moves a job STARTED -> COMPLETED.
func (s *Service) Complete(ctx context.Context, claims *shared.Claims, id int64) (PrintJob, error) {
	job, err := s.Get(ctx, claims, id)
	if err != nil {
		return PrintJob{}, err
	}
	if err := s.fsm.AssertCanTransition(job.Status, StatusCompleted); err != nil {
		return PrintJob{}, err
	}

	before := snapshot(job)
	job.Status = StatusCompleted
	updated, err := s.store.Update(ctx, job)
	if err != nil {
		return PrintJob{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "PRINTJOB.COMPLETE", Entity: "print_job", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, audit.Diff(before, snapshot(updated), watchedFields)),
	})
	return updated, nil
}

func snapshot(j PrintJob) map[string]any {
	var assigned any
	if j.AssignedUserID != nil {
		assigned = *j.AssignedUserID
	}
	return map[string]any{
		"status":           j.Status,
		"assigned_user_id": assigned,
	}
}

func entityID(id int64) string {
	return fmt.Sprintf("%d", id)
}
