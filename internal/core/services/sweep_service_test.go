package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/core/domain"
)

type SweepSuite struct {
	suite.Suite
	env *testEnv
	ctx context.Context
}

func (s *SweepSuite) SetupTest() {
	s.env = newTestEnv()
	s.ctx = context.Background()
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepSuite))
}

func (s *SweepSuite) TestRun() {
	s.Run("a past-due borrow is flagged and fined once", func() {
		patronID := s.env.newPatron("nia")
		bookID := s.env.newBook("Overdue Copy")
		borrow := s.env.openBorrow(patronID, bookID, time.Now().Add(-25*time.Hour))

		summary, err := s.env.sweep.Run(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, summary.BorrowsFlaggedOverdue)
		s.Equal(1, summary.OverdueFinesCreated)

		flagged, err := s.env.store.Borrows().GetByID(s.ctx, borrow.ID)
		s.Require().NoError(err)
		s.Equal(models.BorrowOverdue, flagged.Status)

		outstanding, err := s.env.store.Fines().OutstandingTotalByPatron(s.ctx, patronID)
		s.Require().NoError(err)
		s.Equal(1*s.env.policy.OverdueDailyRate, outstanding)
	})

	s.Run("an immediate re-run changes nothing", func() {
		patronID := s.env.newPatron("oda")
		bookID := s.env.newBook("Still Overdue")
		s.env.openBorrow(patronID, bookID, time.Now().Add(-25*time.Hour))

		_, err := s.env.sweep.Run(s.ctx)
		s.Require().NoError(err)

		again, err := s.env.sweep.Run(s.ctx)
		s.Require().NoError(err)
		s.Equal(0, again.BorrowsFlaggedOverdue)
		s.Equal(0, again.OverdueFinesCreated, "the rolling-day cooldown blocks a second fine")
		s.Equal(0, again.CardsSuspended)
		s.Equal(0, again.ReservationsExpired)

		outstanding, err := s.env.store.Fines().OutstandingTotalByPatron(s.ctx, patronID)
		s.Require().NoError(err)
		s.Equal(1*s.env.policy.OverdueDailyRate, outstanding)
	})

	s.Run("a borrow overdue past the threshold suspends the card once", func() {
		patronID := s.env.newPatron("pia")
		bookID := s.env.newBook("Long Gone")
		s.env.openBorrow(patronID, bookID, time.Now().AddDate(0, 0, -31))

		summary, err := s.env.sweep.Run(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, summary.CardsSuspended)

		card, err := s.env.store.Patrons().GetCardByPatron(s.ctx, patronID)
		s.Require().NoError(err)
		s.Require().NotNil(card)
		s.Equal(models.CardSuspended, card.Status)
		s.NotNil(card.SuspendedAt)

		var requested bool
		for _, event := range summary.Events {
			if e, ok := event.(domain.CardSuspensionRequested); ok && e.PatronID == patronID {
				requested = true
			}
		}
		s.True(requested)

		again, err := s.env.sweep.Run(s.ctx)
		s.Require().NoError(err)
		s.Equal(0, again.CardsSuspended)
	})

	s.Run("a borrow overdue under the threshold keeps the card active", func() {
		patronID := s.env.newPatron("ray")
		bookID := s.env.newBook("Briefly Late")
		s.env.openBorrow(patronID, bookID, time.Now().AddDate(0, 0, -5))

		summary, err := s.env.sweep.Run(s.ctx)
		s.Require().NoError(err)
		s.Equal(0, summary.CardsSuspended)

		card, err := s.env.store.Patrons().GetCardByPatron(s.ctx, patronID)
		s.Require().NoError(err)
		s.Equal(models.CardActive, card.Status)
	})

	s.Run("stale holds are expired as part of the pass", func() {
		patronID := s.env.newPatron("sue")
		bookID := s.env.newBook("Unclaimed")
		held, err := s.env.reservations.Reserve(s.ctx, patronID, bookID)
		s.Require().NoError(err)
		held.Reservation.ExpiresAt = time.Now().Add(-time.Hour)
		s.Require().NoError(s.env.store.Reservations().Update(s.ctx, held.Reservation))

		summary, err := s.env.sweep.Run(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, summary.ReservationsExpired)

		book, err := s.env.store.Books().GetByID(s.ctx, bookID)
		s.Require().NoError(err)
		s.Equal(domain.StatusAvailable, book.Availability)
	})

	s.Run("a cancelled fine does not hold the assessment cooldown", func() {
		patronID := s.env.newPatron("val")
		bookID := s.env.newBook("Mischarged")
		s.env.openBorrow(patronID, bookID, time.Now().Add(-25*time.Hour))

		first, err := s.env.sweep.Run(s.ctx)
		s.Require().NoError(err)

		var fineID uint
		for _, event := range first.Events {
			if created, ok := event.(domain.FineCreated); ok && created.PatronID == patronID {
				fineID = created.FineID
			}
		}
		s.Require().NotZero(fineID)

		_, err = s.env.fines.Cancel(s.ctx, fineID, "assessed in error")
		s.Require().NoError(err)

		again, err := s.env.sweep.Run(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, again.OverdueFinesCreated, "the voided assessment is redone")

		outstanding, err := s.env.store.Fines().OutstandingTotalByPatron(s.ctx, patronID)
		s.Require().NoError(err)
		s.Equal(1*s.env.policy.OverdueDailyRate, outstanding)
	})

	s.Run("a clean library yields an empty summary", func() {
		patronID := s.env.newPatron("tom")
		bookID := s.env.newBook("On Time")
		s.env.openBorrow(patronID, bookID, time.Now().AddDate(0, 0, 7))

		summary, err := s.env.sweep.Run(s.ctx)
		s.Require().NoError(err)
		s.Equal(0, summary.BorrowsFlaggedOverdue)
		s.Equal(0, summary.OverdueFinesCreated)
		s.Equal(0, summary.CardsSuspended)
		s.Equal(0, summary.ReservationsExpired)
		s.Empty(summary.Events)
	})
}

func (s *SweepSuite) TestRunRollback() {
	env := newTestEnv()
	patronID := env.newPatron("una")
	bookID := env.newBook("Flaky Borrow")
	borrow := env.openBorrow(patronID, bookID, time.Now().Add(-25*time.Hour))

	store := &commitFailStore{Store: env.store, err: errors.New("commit failed"), armed: true}
	fines := NewFineService(store, env.policy)
	reservations := NewReservationService(store, env.gate, env.policy)
	sweep := NewSweepService(store, fines, reservations, env.policy)

	// The flag transaction rolls back; nothing of it may reach the summary
	summary, err := sweep.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, summary.BorrowsFlaggedOverdue)
	s.Equal(0, summary.OverdueFinesCreated)
	s.Empty(summary.Events)

	current, err := env.store.Borrows().GetByID(s.ctx, borrow.ID)
	s.Require().NoError(err)
	s.Equal(models.BorrowActive, current.Status)

	outstanding, err := env.store.Fines().OutstandingTotalByPatron(s.ctx, patronID)
	s.Require().NoError(err)
	s.Equal(0.0, outstanding)

	// The next pass, with storage healthy again, flags and fines it
	summary, err = sweep.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, summary.BorrowsFlaggedOverdue)
	s.Equal(1, summary.OverdueFinesCreated)
}
