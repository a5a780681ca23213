package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/adapters/persistence/repositories"
	"openshelf/internal/config"
	"openshelf/internal/core/domain"
)

// FineService is the ledger for monetary obligations: creation, payment,
// waiver and cancellation. Balances move only through this service.
type FineService struct {
	store  repositories.Store
	policy config.Policy
}

// NewFineService creates a new fine service
func NewFineService(store repositories.Store, policy config.Policy) *FineService {
	return &FineService{store: store, policy: policy}
}

// FineResult carries the fine plus the domain events produced
type FineResult struct {
	Fine   *models.Fine
	Events []domain.Event
}

// OverdueDays returns how many whole days past due a borrow is. Pure and
// deterministic given the two times.
func OverdueDays(dueAt, now time.Time) int {
	if !now.After(dueAt) {
		return 0
	}
	return int(now.Sub(dueAt).Hours() / 24)
}

// CreateFineInput represents a manual fine
type CreateFineInput struct {
	PatronID uint
	BookID   *uint
	BorrowID *uint
	Amount   float64
	Reason   string
}

// Create records a new fine against a patron
func (s *FineService) Create(ctx context.Context, input *CreateFineInput) (*FineResult, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var result *FineResult
	err := s.store.Atomic(ctx, func(st repositories.Store) error {
		fine, events, err := createFine(ctx, st, input, s.policy, time.Now())
		if err != nil {
			return err
		}
		result = &FineResult{Fine: fine, Events: events}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// createFine is the transactional body of Create, shared with the overdue
// and damage assessment paths.
func createFine(ctx context.Context, st repositories.Store, input *CreateFineInput, policy config.Policy, now time.Time) (*models.Fine, []domain.Event, error) {
	fine := &models.Fine{
		PatronID:  input.PatronID,
		BookID:    input.BookID,
		BorrowID:  input.BorrowID,
		Amount:    input.Amount,
		Reason:    input.Reason,
		Status:    models.FinePending,
		DueAt:     now.AddDate(0, 0, policy.FineDueDays),
		CreatedAt: now,
	}
	if err := st.Fines().Create(ctx, fine); err != nil {
		return nil, nil, err
	}

	events := []domain.Event{domain.FineCreated{
		FineID:   fine.ID,
		PatronID: fine.PatronID,
		Amount:   fine.Amount,
		Reason:   fine.Reason,
	}}
	return fine, events, nil
}

// assessOverdueFine creates an overdue fine for a borrow unless one was
// already created within the rolling day (the sweep and the return path may
// both try). Runs on the caller's transaction. Returns nil without error
// when nothing is owed yet or the fine already exists.
func (s *FineService) assessOverdueFine(ctx context.Context, st repositories.Store, borrow *models.Borrow, now time.Time) (*models.Fine, []domain.Event, error) {
	days := OverdueDays(borrow.DueAt, now)
	if days < 1 {
		return nil, nil, nil
	}

	exists, err := st.Fines().HasOverdueFineSince(ctx, borrow.ID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, nil
	}

	return createFine(ctx, st, &CreateFineInput{
		PatronID: borrow.PatronID,
		BookID:   &borrow.BookID,
		BorrowID: &borrow.ID,
		Amount:   float64(days) * s.policy.OverdueDailyRate,
		Reason:   models.FineReasonOverdue,
	}, s.policy, now)
}

// Pay applies a payment to a fine. Payments accumulate; the fine settles
// when the paid amount reaches the fine amount. Paying more than the
// remaining balance is rejected, not clamped.
func (s *FineService) Pay(ctx context.Context, fineID uint, amount float64, method, reference string) (*FineResult, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var result *FineResult
	err := s.store.Atomic(ctx, func(st repositories.Store) error {
		fine, err := st.Fines().GetByID(ctx, fineID)
		if err != nil {
			return err
		}
		if fine.IsResolved() {
			return domain.ErrAlreadyResolved
		}
		if amount > fine.Balance() {
			return domain.ErrPaymentExceedsBalance
		}

		now := time.Now()
		fine.PaidAmount += amount
		if fine.PaidAmount >= fine.Amount {
			fine.Status = models.FinePaid
			fine.PaidAt = &now
		} else {
			fine.Status = models.FinePartial
		}
		if err := st.Fines().Update(ctx, fine); err != nil {
			return err
		}

		if reference == "" {
			reference = uuid.New().String()
		}
		payment := &models.FinePayment{
			FineID:    fine.ID,
			Amount:    amount,
			Method:    method,
			Reference: reference,
			PaidAt:    now,
		}
		if err := st.Fines().AddPayment(ctx, payment); err != nil {
			return err
		}

		result = &FineResult{Fine: fine, Events: []domain.Event{domain.FinePaid{
			FineID:    fine.ID,
			Amount:    amount,
			Reference: reference,
			Settled:   fine.Status == models.FinePaid,
		}}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Fine %d payment %.2f accepted (status: %s)", fineID, amount, result.Fine.Status)
	return result, nil
}

// Waive forgives a fine. Terminal: a waived fine cannot be reopened.
func (s *FineService) Waive(ctx context.Context, fineID, waivedBy uint, reason string) (*FineResult, error) {
	var result *FineResult
	err := s.store.Atomic(ctx, func(st repositories.Store) error {
		fine, err := st.Fines().GetByID(ctx, fineID)
		if err != nil {
			return err
		}
		if fine.IsResolved() {
			return domain.ErrAlreadyResolved
		}

		fine.Status = models.FineWaived
		fine.WaivedBy = &waivedBy
		fine.WaiveReason = reason
		if err := st.Fines().Update(ctx, fine); err != nil {
			return err
		}

		result = &FineResult{Fine: fine, Events: []domain.Event{domain.FineWaived{
			FineID:   fine.ID,
			WaivedBy: waivedBy,
		}}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel voids a fine (e.g. assessed in error). Terminal.
func (s *FineService) Cancel(ctx context.Context, fineID uint, reason string) (*FineResult, error) {
	var result *FineResult
	err := s.store.Atomic(ctx, func(st repositories.Store) error {
		fine, err := st.Fines().GetByID(ctx, fineID)
		if err != nil {
			return err
		}
		if fine.IsResolved() {
			return domain.ErrAlreadyResolved
		}

		fine.Status = models.FineCancelled
		fine.CancelReason = reason
		if err := st.Fines().Update(ctx, fine); err != nil {
			return err
		}

		result = &FineResult{Fine: fine}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID returns a fine by ID
func (s *FineService) GetByID(ctx context.Context, fineID uint) (*models.Fine, error) {
	return s.store.Fines().GetByID(ctx, fineID)
}

// ListPayments returns the payment ledger rows for a fine
func (s *FineService) ListPayments(ctx context.Context, fineID uint) ([]*models.FinePayment, error) {
	return s.store.Fines().ListPayments(ctx, fineID)
}
