package accounting

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
	List(ctx context.Context, f ListFilter) ([]Transaction, int, time.Time, error)
	Get(ctx context.Context, id int64) (Transaction, error)
	Create(ctx context.Context, t Transaction) (Transaction, error)
	Update(ctx context.Context, t Transaction) (Transaction, error)
}

var watchedFields = []string{"status"}

// Service implements transaction business rules.
type Service struct {
	store    Store
	recorder *audit.Recorder
	fsm      *lifecycle.Validator
}

// NewService constructs a service.
func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, recorder: recorder, fsm: lifecycle.AccountingTransactions}
}

// List returns transactions visible within the caller's branch scope.
func (s *Service) List(ctx context.Context, claims *shared.Claims, f ListFilter) ([]Transaction, int, time.Time, error) {
	return s.store.List(ctx, f)
}

// Get returns one transaction after asserting branch access.
func (s *Service) Get(ctx context.Context, claims *shared.Claims, id int64) (Transaction, error) {
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if err := authz.AssertBranchAccess(claims, tx.BranchID); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// CreateInput carries the fields of a new transaction.
type CreateInput struct {
	BranchID    int64
	Description string
	AmountCents int64
}

// Create records a transaction in status NEW.
func (s *Service) Create(ctx context.Context, claims *shared.Claims, in CreateInput) (Transaction, error) {
	if in.Description == "" {
		return Transaction{}, shared.ValidationErrorf("description is required")
	}
	if in.AmountCents == 0 {
		return Transaction{}, shared.ValidationErrorf("amount_cents must not be zero")
	}
	if err := authz.AssertBranchAccess(claims, in.BranchID); err != nil {
		return Transaction{}, err
	}
	tx, err := s.store.Create(ctx, Transaction{
		BranchID:    in.BranchID,
		Description: in.Description,
		AmountCents: in.AmountCents,
		Status:      StatusNew,
		CreatedBy:   claims.UserID,
	})
	if err != nil {
		return Transaction{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "TX.CREATE", Entity: "accounting_transaction", EntityID: entityID(tx.ID),
		Meta: map[string]any{"branch_id": tx.BranchID, "amount_cents": tx.AmountCents},
	})
	return tx, nil
}

// Approve moves a transaction NEW -> APPROVED.
func (s *Service) Approve(ctx context.Context, claims *shared.Claims, id int64) (Transaction, error) {
	return s.transition(ctx, claims, id, StatusApproved, "TX.APPROVE")
}

// Reject moves a transaction NEW -> REJECTED.
func (s *Service) Reject(ctx context.Context, claims *shared.Claims, id int64) (Transaction, error) {
	return s.transition(ctx, claims, id, StatusRejected, "TX.REJECT")
}

// Pay moves a transaction APPROVED -> PAID.
func (s *Service) Pay(ctx context.Context, claims *shared.Claims, id int64) (Transaction, error) {
	return s.transition(ctx, claims, id, StatusPaid, "TX.PAY")
}

func (s *Service) transition(ctx context.Context, claims *shared.Claims, id int64, target, action string) (Transaction, error) {
	tx, err := s.Get(ctx, claims, id)
	if err != nil {
		return Transaction{}, err
	}
	if err := s.fsm.AssertCanTransition(tx.Status, target); err != nil {
		return Transaction{}, err
	}

	before := map[string]any{"status": tx.Status}
	tx.Status = target
	updated, err := s.store.Update(ctx, tx)
	if err != nil {
		return Transaction{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: action, Entity: "accounting_transaction", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, audit.Diff(before, map[string]any{"status": updated.Status}, watchedFields)),
	})
	return updated, nil
}

func entityID(id int64) string {
	return fmt.Sprintf("%d", id)
}
