package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"openshelf/internal/adapters/persistence/models"
)

type AccountSuite struct {
	suite.Suite
	env *testEnv
	ctx context.Context
}

func (s *AccountSuite) SetupTest() {
	s.env = newTestEnv()
	s.ctx = context.Background()
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountSuite))
}

func (s *AccountSuite) TestGetSummary() {
	s.Run("a fresh patron has a clean summary", func() {
		patronID := s.env.newPatron("vera")

		summary, err := s.env.accounts.GetSummary(s.ctx, patronID)
		s.Require().NoError(err)
		s.Empty(summary.ActiveBorrows)
		s.Equal(0, summary.OverdueCount)
		s.Equal(int64(0), summary.ActiveHolds)
		s.Equal(0.0, summary.OutstandingFines)
		s.Equal(models.CardActive, summary.CardStatus)
	})

	s.Run("borrows, holds and fines all show up", func() {
		patronID := s.env.newPatron("will")

		bookID := s.env.newBook("Out Now")
		_, err := s.env.lending.Borrow(s.ctx, patronID, bookID)
		s.Require().NoError(err)

		lateBook := s.env.newBook("Late One")
		s.env.openBorrow(patronID, lateBook, time.Now().Add(-25*time.Hour))

		heldBook := s.env.newBook("Held One")
		otherID := s.env.newPatron("xan")
		s.env.openBorrow(otherID, heldBook, time.Now().AddDate(0, 0, 7))
		// Reserve is gated by the overdue borrow; insert the hold directly
		s.Require().NoError(s.env.store.Reservations().Create(s.ctx, &models.Reservation{
			BookID:    heldBook,
			PatronID:  patronID,
			Status:    models.ReservationActive,
			ExpiresAt: time.Now().AddDate(0, 0, 7),
		}))

		_, err = s.env.fines.Create(s.ctx, &CreateFineInput{
			PatronID: patronID,
			Amount:   4.00,
			Reason:   models.FineReasonOther,
		})
		s.Require().NoError(err)

		summary, err := s.env.accounts.GetSummary(s.ctx, patronID)
		s.Require().NoError(err)
		s.Len(summary.ActiveBorrows, 2)
		s.Equal(1, summary.OverdueCount)
		s.Equal(int64(1), summary.ActiveHolds)
		s.Equal(4.00, summary.OutstandingFines)
	})

	s.Run("an expired card reads EXPIRED", func() {
		patron := &models.Patron{
			Name:  "Lapsed",
			Email: "lapsed@example.org",
			Card: &models.LibraryCard{
				Number:    "LC-9999",
				Status:    models.CardActive,
				ExpiresAt: time.Now().AddDate(0, 0, -1),
			},
		}
		s.Require().NoError(s.env.store.Patrons().Create(s.ctx, patron))

		summary, err := s.env.accounts.GetSummary(s.ctx, patron.ID)
		s.Require().NoError(err)
		s.Equal("EXPIRED", summary.CardStatus)
	})
}
