package services

import (
	"context"
	"log"
	"time"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/adapters/persistence/repositories"
	"openshelf/internal/config"
	"openshelf/internal/core/domain"
)

// LendingService orchestrates borrow, return and renewal. Every operation
// runs as one atomic unit: the borrow row, the availability flag and any
// touched reservation or fine commit together or not at all.
type LendingService struct {
	store  repositories.Store
	gate   *EligibilityService
	fines  *FineService
	policy config.Policy
}

// NewLendingService creates a new lending service
func NewLendingService(store repositories.Store, gate *EligibilityService, fines *FineService, policy config.Policy) *LendingService {
	return &LendingService{store: store, gate: gate, fines: fines, policy: policy}
}

// BorrowResult carries the borrow plus the domain events produced
type BorrowResult struct {
	Borrow *models.Borrow
	Events []domain.Event
}

// Borrow lends a book to a patron. The book row is locked first, so a
// concurrent attempt on the same book waits and then fails the
// availability check instead of double-borrowing.
func (s *LendingService) Borrow(ctx context.Context, patronID, bookID uint) (*BorrowResult, error) {
	var result *BorrowResult

	err := s.store.Atomic(ctx, func(st repositories.Store) error {
		book, err := st.Books().GetByIDForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		if err := s.gate.CanBorrow(ctx, st, patronID, bookID); err != nil {
			return err
		}

		// A parked book belongs to the head of its queue and nobody else
		var hold *models.Reservation
		if book.Availability == domain.StatusReserved {
			head, err := st.Reservations().HeadOf(ctx, bookID)
			if err != nil {
				return err
			}
			if head == nil || head.PatronID != patronID {
				return domain.ErrBookUnavailable
			}
			hold = head
		} else {
			hold, err = st.Reservations().GetActiveByBookAndPatron(ctx, bookID, patronID)
			if err != nil {
				return err
			}
		}

		availability, err := domain.Transition(book.Availability, domain.ActionBorrow)
		if err != nil {
			return err
		}

		now := time.Now()
		borrow := &models.Borrow{
			BookID:     bookID,
			PatronID:   patronID,
			BorrowedAt: now,
			DueAt:      now.AddDate(0, 0, s.policy.LoanDays),
			Status:     models.BorrowActive,
		}
		if err := st.Borrows().Create(ctx, borrow); err != nil {
			return err
		}
		if err := st.Books().UpdateAvailability(ctx, bookID, availability); err != nil {
			return err
		}

		events := []domain.Event{domain.BorrowCreated{
			BorrowID: borrow.ID,
			BookID:   bookID,
			PatronID: patronID,
			DueAt:    borrow.DueAt,
		}}

		if hold != nil {
			if _, err := fulfillReservation(ctx, st, hold.ID, borrow.ID); err != nil {
				return err
			}
			events = append(events, domain.ReservationFulfilled{
				ReservationID: hold.ID,
				BorrowID:      borrow.ID,
			})
		}

		result = &BorrowResult{Borrow: borrow, Events: events}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Borrow %d created (book %d, patron %d, due %s)",
		result.Borrow.ID, bookID, patronID, result.Borrow.DueAt.Format("2006-01-02"))
	return result, nil
}

// ReturnOptions carries optional metadata recorded at return time
type ReturnOptions struct {
	Notes      string
	Damaged    bool
	DamageCost float64
}

// ReturnResult carries the completed borrow, any fine assessed at the desk
// and the domain events produced
type ReturnResult struct {
	Borrow *models.Borrow
	Fine   *models.Fine
	Events []domain.Event
}

// Return completes a borrow. A late return assesses an overdue fine, a
// damaged return assesses a damage fine, and the book either goes back on
// the shelf or is parked for the next hold in the queue.
func (s *LendingService) Return(ctx context.Context, borrowID uint, opts ReturnOptions) (*ReturnResult, error) {
	var result *ReturnResult

	err := s.store.Atomic(ctx, func(st repositories.Store) error {
		borrow, err := st.Borrows().GetByID(ctx, borrowID)
		if err != nil {
			return err
		}
		if !borrow.IsOpen() {
			return domain.ErrBorrowNotOpen
		}

		book, err := st.Books().GetByIDForUpdate(ctx, borrow.BookID)
		if err != nil {
			return err
		}

		now := time.Now()
		wasOverdue := now.After(borrow.DueAt)

		borrow.ReturnedAt = &now
		borrow.Status = models.BorrowCompleted
		if opts.Notes != "" {
			borrow.Notes = opts.Notes
		}
		if err := st.Borrows().Update(ctx, borrow); err != nil {
			return err
		}

		events := []domain.Event{domain.BorrowReturned{
			BorrowID: borrow.ID,
			BookID:   borrow.BookID,
			PatronID: borrow.PatronID,
			Overdue:  wasOverdue,
		}}

		var fine *models.Fine
		if wasOverdue {
			var fineEvents []domain.Event
			fine, fineEvents, err = s.fines.assessOverdueFine(ctx, st, borrow, now)
			if err != nil {
				return err
			}
			events = append(events, fineEvents...)
		}
		if opts.Damaged && opts.DamageCost > 0 {
			damageFine, fineEvents, err := createFine(ctx, st, &CreateFineInput{
				PatronID: borrow.PatronID,
				BookID:   &borrow.BookID,
				BorrowID: &borrow.ID,
				Amount:   opts.DamageCost,
				Reason:   models.FineReasonDamaged,
			}, s.policy, now)
			if err != nil {
				return err
			}
			events = append(events, fineEvents...)
			if fine == nil {
				fine = damageFine
			}
		}

		availability, err := domain.Transition(book.Availability, domain.ActionReturn)
		if err != nil {
			return err
		}
		head, err := st.Reservations().HeadOf(ctx, borrow.BookID)
		if err != nil {
			return err
		}
		if head != nil {
			availability, err = domain.Transition(availability, domain.ActionReserve)
			if err != nil {
				return err
			}
			events = append(events, domain.HoldReadyForPickup{
				ReservationID: head.ID,
				BookID:        borrow.BookID,
				PatronID:      head.PatronID,
			})
		}
		if err := st.Books().UpdateAvailability(ctx, borrow.BookID, availability); err != nil {
			return err
		}

		result = &ReturnResult{Borrow: borrow, Fine: fine, Events: events}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Borrow %d returned (book %d)", borrowID, result.Borrow.BookID)
	return result, nil
}

// Renew extends a borrow's due date. Refused outright when any hold waits
// on the book: patrons in the queue cannot be starved by endless renewals.
func (s *LendingService) Renew(ctx context.Context, borrowID uint) (*BorrowResult, error) {
	var result *BorrowResult

	err := s.store.Atomic(ctx, func(st repositories.Store) error {
		borrow, err := st.Borrows().GetByID(ctx, borrowID)
		if err != nil {
			return err
		}
		if !borrow.IsOpen() {
			return domain.ErrBorrowNotOpen
		}

		now := time.Now()
		if borrow.Status == models.BorrowOverdue || now.After(borrow.DueAt) {
			return domain.ErrBorrowOverdue
		}
		if borrow.RenewalCount >= s.policy.MaxRenewals {
			return domain.ErrRenewalLimitReached
		}

		waiting, err := st.Reservations().CountActiveByBook(ctx, borrow.BookID)
		if err != nil {
			return err
		}
		if waiting > 0 {
			return domain.ErrRenewalBlockedByHold
		}

		borrow.DueAt = borrow.DueAt.AddDate(0, 0, s.policy.RenewalExtensionDays)
		borrow.RenewalCount++
		if err := st.Borrows().Update(ctx, borrow); err != nil {
			return err
		}

		result = &BorrowResult{Borrow: borrow, Events: []domain.Event{domain.BorrowRenewed{
			BorrowID:     borrow.ID,
			NewDueAt:     borrow.DueAt,
			RenewalCount: borrow.RenewalCount,
		}}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Borrow %d renewed (due %s)", borrowID, result.Borrow.DueAt.Format("2006-01-02"))
	return result, nil
}

// GetBorrow returns a borrow by ID
func (s *LendingService) GetBorrow(ctx context.Context, borrowID uint) (*models.Borrow, error) {
	return s.store.Borrows().GetByID(ctx, borrowID)
}
