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

// ReservationService manages the per-book FIFO hold queue
type ReservationService struct {
	store  repositories.Store
	gate   *EligibilityService
	policy config.Policy
}

// NewReservationService creates a new reservation service
func NewReservationService(store repositories.Store, gate *EligibilityService, policy config.Policy) *ReservationService {
	return &ReservationService{store: store, gate: gate, policy: policy}
}

// ReservationResult carries the reservation plus the domain events produced
type ReservationResult struct {
	Reservation *models.Reservation
	Events      []domain.Event
}

// Reserve places a hold for the patron at the tail of the book's queue.
// When the book sits on the shelf, it is parked for this hold right away.
func (s *ReservationService) Reserve(ctx context.Context, patronID, bookID uint) (*ReservationResult, error) {
	var result *ReservationResult

	err := s.store.Atomic(ctx, func(st repositories.Store) error {
		book, err := st.Books().GetByIDForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		if err := s.gate.CanReserve(ctx, st, patronID, bookID); err != nil {
			return err
		}

		now := time.Now()
		reservation := &models.Reservation{
			BookID:    bookID,
			PatronID:  patronID,
			Status:    models.ReservationActive,
			ExpiresAt: now.AddDate(0, 0, s.policy.ReservationTTLDays),
			CreatedAt: now,
		}
		if err := st.Reservations().Create(ctx, reservation); err != nil {
			return err
		}

		events := []domain.Event{domain.ReservationCreated{
			ReservationID: reservation.ID,
			BookID:        bookID,
			PatronID:      patronID,
			ExpiresAt:     reservation.ExpiresAt,
		}}

		if book.Availability == domain.StatusAvailable {
			next, err := domain.Transition(book.Availability, domain.ActionReserve)
			if err != nil {
				return err
			}
			if err := st.Books().UpdateAvailability(ctx, bookID, next); err != nil {
				return err
			}
			events = append(events, domain.HoldReadyForPickup{
				ReservationID: reservation.ID,
				BookID:        bookID,
				PatronID:      patronID,
			})
		}

		result = &ReservationResult{Reservation: reservation, Events: events}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Reservation %d created (book %d, patron %d)", result.Reservation.ID, bookID, patronID)
	return result, nil
}

// Cancel withdraws a hold and releases the book if it was parked for it
func (s *ReservationService) Cancel(ctx context.Context, reservationID uint, reason string) (*ReservationResult, error) {
	var result *ReservationResult

	err := s.store.Atomic(ctx, func(st repositories.Store) error {
		reservation, err := st.Reservations().GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if !reservation.IsActive() {
			return domain.ErrReservationNotActive
		}

		book, err := st.Books().GetByIDForUpdate(ctx, reservation.BookID)
		if err != nil {
			return err
		}
		wasHead, err := claimsBook(ctx, st, reservation)
		if err != nil {
			return err
		}

		now := time.Now()
		reservation.Status = models.ReservationCancelled
		reservation.CancelledAt = &now
		reservation.CancelReason = reason
		if err := st.Reservations().Update(ctx, reservation); err != nil {
			return err
		}

		events := []domain.Event{domain.ReservationCancelled{ReservationID: reservation.ID, Reason: reason}}
		events, err = s.releaseHoldSlot(ctx, st, book, wasHead, events)
		if err != nil {
			return err
		}

		result = &ReservationResult{Reservation: reservation, Events: events}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// claimsBook reports whether the book is parked for this reservation: no
// live hold sits ahead of it in FIFO order. HeadOf skips expired holds, so
// a stale claimant compares against the live head that would succeed it.
func claimsBook(ctx context.Context, st repositories.Store, reservation *models.Reservation) (bool, error) {
	head, err := st.Reservations().HeadOf(ctx, reservation.BookID)
	if err != nil {
		return false, err
	}
	if head == nil || head.ID == reservation.ID {
		return true, nil
	}
	if reservation.CreatedAt.Equal(head.CreatedAt) {
		return reservation.ID < head.ID, nil
	}
	return reservation.CreatedAt.Before(head.CreatedAt), nil
}

// releaseHoldSlot handles the availability cascade after the head hold of a
// parked book goes away: hand the book to the next hold, or put it back on
// the shelf when the queue drained.
func (s *ReservationService) releaseHoldSlot(ctx context.Context, st repositories.Store, book *models.Book, wasHead bool, events []domain.Event) ([]domain.Event, error) {
	if book.Availability != domain.StatusReserved || !wasHead {
		return events, nil
	}

	next, err := st.Reservations().HeadOf(ctx, book.ID)
	if err != nil {
		return nil, err
	}
	if next != nil {
		events = append(events, domain.HoldReadyForPickup{
			ReservationID: next.ID,
			BookID:        book.ID,
			PatronID:      next.PatronID,
		})
		return events, nil
	}

	availability, err := domain.Transition(book.Availability, domain.ActionCancelReservation)
	if err != nil {
		return nil, err
	}
	if err := st.Books().UpdateAvailability(ctx, book.ID, availability); err != nil {
		return nil, err
	}
	return events, nil
}

// Fulfill marks a hold fulfilled by a borrow. Fulfilling an already
// fulfilled reservation with the same borrow is a no-op.
func (s *ReservationService) Fulfill(ctx context.Context, reservationID, borrowID uint) (*models.Reservation, error) {
	var reservation *models.Reservation

	err := s.store.Atomic(ctx, func(st repositories.Store) error {
		var err error
		reservation, err = fulfillReservation(ctx, st, reservationID, borrowID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// fulfillReservation is the transactional body of Fulfill, shared with the
// lending workflow's borrow path.
func fulfillReservation(ctx context.Context, st repositories.Store, reservationID, borrowID uint) (*models.Reservation, error) {
	reservation, err := st.Reservations().GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	// Idempotency: repeating the same fulfillment returns the same result
	if reservation.Status == models.ReservationFulfilled &&
		reservation.FulfilledByBorrowID != nil && *reservation.FulfilledByBorrowID == borrowID {
		return reservation, nil
	}
	if !reservation.IsActive() {
		return nil, domain.ErrReservationNotActive
	}

	reservation.Status = models.ReservationFulfilled
	reservation.FulfilledByBorrowID = &borrowID
	if err := st.Reservations().Update(ctx, reservation); err != nil {
		return nil, err
	}
	return reservation, nil
}

// HeadOf returns the next hold entitled to the book, nil when none waits
func (s *ReservationService) HeadOf(ctx context.Context, bookID uint) (*models.Reservation, error) {
	return s.store.Reservations().HeadOf(ctx, bookID)
}

// GetByID returns a reservation by ID
func (s *ReservationService) GetByID(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	return s.store.Reservations().GetByID(ctx, reservationID)
}

// ExpireStale marks every active reservation past its expiry and cascades
// availability for parked books. Safe to call repeatedly and concurrently
// with Reserve/Cancel: expiry is a status flip guarded by a state re-check,
// never a delete.
func (s *ReservationService) ExpireStale(ctx context.Context) (int, []domain.Event, error) {
	now := time.Now()

	stale, err := s.store.Reservations().FindActiveExpiredBefore(ctx, now)
	if err != nil {
		return 0, nil, err
	}

	expired := 0
	var events []domain.Event
	for _, candidate := range stale {
		// Per-item results stay local until the transaction commits: a
		// rolled-back (or retried) item must not leak into the totals.
		var itemEvents []domain.Event
		err := s.store.Atomic(ctx, func(st repositories.Store) error {
			itemEvents = nil
			reservation, err := st.Reservations().GetByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			// Re-check: a concurrent cancel/fulfill may have resolved it
			if !reservation.IsActive() || reservation.ExpiresAt.After(now) {
				return nil
			}

			book, err := st.Books().GetByIDForUpdate(ctx, reservation.BookID)
			if err != nil {
				return err
			}
			wasHead, err := claimsBook(ctx, st, reservation)
			if err != nil {
				return err
			}

			reservation.Status = models.ReservationExpired
			if err := st.Reservations().Update(ctx, reservation); err != nil {
				return err
			}
			itemEvents = append(itemEvents, domain.ReservationExpired{
				ReservationID: reservation.ID,
				BookID:        reservation.BookID,
				PatronID:      reservation.PatronID,
			})

			itemEvents, err = s.releaseHoldSlot(ctx, st, book, wasHead, itemEvents)
			return err
		})
		if err != nil {
			log.Printf("❌ Expire reservation %d error: %v", candidate.ID, err)
			continue
		}
		if len(itemEvents) > 0 {
			expired++
			events = append(events, itemEvents...)
		}
	}

	return expired, events, nil
}
