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

// SweepService is the periodic reconciliation pass: it flags overdue
// borrows and assesses their fines, suspends cards past the suspension
// threshold and expires stale holds. Every step re-checks current state
// before acting, so overlapping runs stay idempotent without a global lock.
type SweepService struct {
	store        repositories.Store
	fines        *FineService
	reservations *ReservationService
	policy       config.Policy
}

// NewSweepService creates a new sweep service
func NewSweepService(store repositories.Store, fines *FineService, reservations *ReservationService, policy config.Policy) *SweepService {
	return &SweepService{store: store, fines: fines, reservations: reservations, policy: policy}
}

// SweepSummary reports what a sweep run did
type SweepSummary struct {
	BorrowsFlaggedOverdue int
	OverdueFinesCreated   int
	CardsSuspended        int
	ReservationsExpired   int
	Events                []domain.Event
}

// Run executes one full sweep pass
func (s *SweepService) Run(ctx context.Context) (*SweepSummary, error) {
	now := time.Now()
	summary := &SweepSummary{}

	if err := s.flagOverdueBorrows(ctx, now, summary); err != nil {
		return nil, err
	}
	if err := s.suspendDelinquentCards(ctx, now, summary); err != nil {
		return nil, err
	}

	expired, events, err := s.reservations.ExpireStale(ctx)
	if err != nil {
		return nil, err
	}
	summary.ReservationsExpired = expired
	summary.Events = append(summary.Events, events...)

	log.Printf("🧹 Sweep done: %d flagged overdue, %d fines, %d cards suspended, %d holds expired",
		summary.BorrowsFlaggedOverdue, summary.OverdueFinesCreated, summary.CardsSuspended, summary.ReservationsExpired)
	return summary, nil
}

// flagOverdueBorrows moves past-due borrows to OVERDUE and assesses the
// day's overdue fine. The fine cooldown makes re-runs no-ops.
func (s *SweepService) flagOverdueBorrows(ctx context.Context, now time.Time, summary *SweepSummary) error {
	overdue, err := s.store.Borrows().FindOpenDueBefore(ctx, now)
	if err != nil {
		return err
	}

	for _, candidate := range overdue {
		// Per-item results stay local until the transaction commits: a
		// rolled-back (or retried) item must not leak into the summary.
		var flagged, fined bool
		var itemEvents []domain.Event
		err := s.store.Atomic(ctx, func(st repositories.Store) error {
			flagged, fined, itemEvents = false, false, nil
			borrow, err := st.Borrows().GetByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			// Re-check: a concurrent return may have closed it
			if !borrow.IsOpen() || !borrow.DueAt.Before(now) {
				return nil
			}

			if borrow.Status != models.BorrowOverdue {
				borrow.Status = models.BorrowOverdue
				if err := st.Borrows().Update(ctx, borrow); err != nil {
					return err
				}
				flagged = true
				itemEvents = append(itemEvents, domain.BorrowMarkedOverdue{
					BorrowID: borrow.ID,
					PatronID: borrow.PatronID,
					DueAt:    borrow.DueAt,
				})
			}

			fine, events, err := s.fines.assessOverdueFine(ctx, st, borrow, now)
			if err != nil {
				return err
			}
			if fine != nil {
				fined = true
				itemEvents = append(itemEvents, events...)
			}
			return nil
		})
		if err != nil {
			log.Printf("❌ Sweep: overdue borrow %d error: %v", candidate.ID, err)
			continue
		}
		if flagged {
			summary.BorrowsFlaggedOverdue++
		}
		if fined {
			summary.OverdueFinesCreated++
		}
		summary.Events = append(summary.Events, itemEvents...)
	}
	return nil
}

// suspendDelinquentCards suspends the card of every patron whose longest
// overdue borrow crossed the suspension threshold. Already suspended cards
// are skipped, so re-runs do nothing.
func (s *SweepService) suspendDelinquentCards(ctx context.Context, now time.Time, summary *SweepSummary) error {
	cutoff := now.AddDate(0, 0, -s.policy.SuspensionThresholdDays)
	delinquent, err := s.store.Borrows().FindOpenDueBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	seen := make(map[uint]bool)
	for _, borrow := range delinquent {
		if seen[borrow.PatronID] {
			continue
		}
		seen[borrow.PatronID] = true

		patronID := borrow.PatronID
		var suspended *domain.CardSuspensionRequested
		err := s.store.Atomic(ctx, func(st repositories.Store) error {
			suspended = nil
			card, err := st.Patrons().GetCardByPatron(ctx, patronID)
			if err != nil {
				return err
			}
			if card == nil || card.Status == models.CardSuspended {
				return nil
			}

			if err := st.Patrons().SuspendCard(ctx, card.ID, now); err != nil {
				return err
			}
			suspended = &domain.CardSuspensionRequested{
				PatronID: patronID,
				CardID:   card.ID,
			}
			return nil
		})
		if err != nil {
			log.Printf("❌ Sweep: suspend card for patron %d error: %v", patronID, err)
			continue
		}
		if suspended != nil {
			summary.CardsSuspended++
			summary.Events = append(summary.Events, *suspended)
		}
	}
	return nil
}
