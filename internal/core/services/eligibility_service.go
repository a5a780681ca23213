package services

import (
	"context"
	"time"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/adapters/persistence/repositories"
	"openshelf/internal/config"
	"openshelf/internal/core/domain"
)

// EligibilityService evaluates the preconditions for circulation actions.
// It is strictly read-only and safe to call speculatively. Checks run in a
// fixed order and fail fast on the first violation, so callers always get
// a deterministic reason.
//
// The store is a parameter rather than a field so the lending workflow can
// run the gate against its own transaction view.
type EligibilityService struct {
	policy config.Policy
}

// NewEligibilityService creates a new eligibility service
func NewEligibilityService(policy config.Policy) *EligibilityService {
	return &EligibilityService{policy: policy}
}

// CanBorrow checks whether the patron may borrow the book right now.
// Order: loan cap, overdue borrows, fine threshold, duplicate borrow,
// availability, card.
func (s *EligibilityService) CanBorrow(ctx context.Context, st repositories.Store, patronID, bookID uint) error {
	now := time.Now()

	count, err := st.Borrows().CountOpenByPatron(ctx, patronID)
	if err != nil {
		return err
	}
	if count >= int64(s.policy.MaxLoansPerPatron) {
		return domain.ErrLoanLimitReached
	}

	overdue, err := st.Borrows().HasOverdueByPatron(ctx, patronID, now)
	if err != nil {
		return err
	}
	if overdue {
		return domain.ErrPatronOverdue
	}

	total, err := st.Fines().OutstandingTotalByPatron(ctx, patronID)
	if err != nil {
		return err
	}
	if total > s.policy.BorrowFineThreshold {
		return domain.ErrFineLimitExceeded
	}

	book, err := st.Books().GetByID(ctx, bookID)
	if err != nil {
		return err
	}

	// The patron's own open borrow is a duplicate; anyone else's makes the
	// book unavailable. An active reservation by the same patron is not a
	// duplicate here: that is the fulfillment path.
	open, err := st.Borrows().GetOpenByBookAndPatron(ctx, bookID, patronID)
	if err != nil {
		return err
	}
	if open != nil {
		return domain.ErrDuplicateHold
	}
	if book.Availability == domain.StatusBorrowed {
		return domain.ErrBookUnavailable
	}

	return s.checkCard(ctx, st, patronID, now)
}

// CanReserve checks whether the patron may place a hold on the book.
// Order: overdue borrows, fine threshold, duplicate borrow/hold, queue
// length, card. The loan cap does not bind holds.
func (s *EligibilityService) CanReserve(ctx context.Context, st repositories.Store, patronID, bookID uint) error {
	now := time.Now()

	overdue, err := st.Borrows().HasOverdueByPatron(ctx, patronID, now)
	if err != nil {
		return err
	}
	if overdue {
		return domain.ErrPatronOverdue
	}

	total, err := st.Fines().OutstandingTotalByPatron(ctx, patronID)
	if err != nil {
		return err
	}
	if total > s.policy.ReserveFineThreshold {
		return domain.ErrFineLimitExceeded
	}

	// Every availability state admits a hold, so no state check here; the
	// book just has to exist.
	if _, err := st.Books().GetByID(ctx, bookID); err != nil {
		return err
	}

	open, err := st.Borrows().GetOpenByBookAndPatron(ctx, bookID, patronID)
	if err != nil {
		return err
	}
	if open != nil {
		return domain.ErrDuplicateHold
	}
	existing, err := st.Reservations().GetActiveByBookAndPatron(ctx, bookID, patronID)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrDuplicateHold
	}

	queued, err := st.Reservations().CountActiveByBook(ctx, bookID)
	if err != nil {
		return err
	}
	if queued >= int64(s.policy.MaxQueueLength) {
		return domain.ErrQueueFull
	}

	return s.checkCard(ctx, st, patronID, now)
}

func (s *EligibilityService) checkCard(ctx context.Context, st repositories.Store, patronID uint, now time.Time) error {
	card, err := st.Patrons().GetCardByPatron(ctx, patronID)
	if err != nil {
		return err
	}
	if card == nil {
		return domain.ErrCardMissing
	}
	if card.Status != models.CardActive {
		return domain.ErrCardInactive
	}
	if !card.ExpiresAt.After(now) {
		return domain.ErrCardExpired
	}
	return nil
}
