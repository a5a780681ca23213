package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/core/domain"
)

type FineSuite struct {
	suite.Suite
	env *testEnv
	ctx context.Context
}

func (s *FineSuite) SetupTest() {
	s.env = newTestEnv()
	s.ctx = context.Background()
}

func TestFineSuite(t *testing.T) {
	suite.Run(t, new(FineSuite))
}

func (s *FineSuite) createFine(amount float64) *models.Fine {
	patronID := s.env.newPatron("debtor")
	result, err := s.env.fines.Create(s.ctx, &CreateFineInput{
		PatronID: patronID,
		Amount:   amount,
		Reason:   models.FineReasonOther,
	})
	s.Require().NoError(err)
	return result.Fine
}

func TestOverdueDays(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before due", due.Add(-time.Hour), 0},
		{"exactly due", due, 0},
		{"under a day late", due.Add(23 * time.Hour), 0},
		{"one day late", due.Add(25 * time.Hour), 1},
		{"just under two days", due.Add(47 * time.Hour), 1},
		{"three days late", due.Add(73 * time.Hour), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, OverdueDays(due, tc.now))
		})
	}
}

func (s *FineSuite) TestCreate() {
	s.Run("a manual fine opens pending with a due date", func() {
		fine := s.createFine(15.00)
		s.Equal(models.FinePending, fine.Status)
		s.Equal(15.00, fine.Amount)
		s.Equal(0.0, fine.PaidAmount)
		s.WithinDuration(time.Now().AddDate(0, 0, 30), fine.DueAt, 2*time.Second)
	})

	s.Run("a non-positive amount is rejected", func() {
		patronID := s.env.newPatron("zero")
		_, err := s.env.fines.Create(s.ctx, &CreateFineInput{PatronID: patronID, Amount: 0, Reason: models.FineReasonOther})
		s.ErrorIs(err, domain.ErrInvalidAmount)

		_, err = s.env.fines.Create(s.ctx, &CreateFineInput{PatronID: patronID, Amount: -3, Reason: models.FineReasonOther})
		s.ErrorIs(err, domain.ErrInvalidAmount)
	})
}

func (s *FineSuite) TestPay() {
	s.Run("partial payments accumulate until the fine settles", func() {
		fine := s.createFine(10.00)

		partial, err := s.env.fines.Pay(s.ctx, fine.ID, 6.00, "CASH", "")
		s.Require().NoError(err)
		s.Equal(models.FinePartial, partial.Fine.Status)
		s.Equal(6.00, partial.Fine.PaidAmount)
		s.Nil(partial.Fine.PaidAt)

		settled, err := s.env.fines.Pay(s.ctx, fine.ID, 4.00, "CASH", "")
		s.Require().NoError(err)
		s.Equal(models.FinePaid, settled.Fine.Status)
		s.Equal(10.00, settled.Fine.PaidAmount)
		s.Require().NotNil(settled.Fine.PaidAt)

		s.Require().Len(settled.Events, 1)
		paid, ok := settled.Events[0].(domain.FinePaid)
		s.Require().True(ok)
		s.True(paid.Settled)
	})

	s.Run("overpayment is rejected and leaves the balance untouched", func() {
		fine := s.createFine(10.00)
		_, err := s.env.fines.Pay(s.ctx, fine.ID, 6.00, "CARD", "")
		s.Require().NoError(err)

		_, err = s.env.fines.Pay(s.ctx, fine.ID, 5.00, "CARD", "")
		s.Require().ErrorIs(err, domain.ErrPaymentExceedsBalance)

		current, err := s.env.fines.GetByID(s.ctx, fine.ID)
		s.Require().NoError(err)
		s.Equal(6.00, current.PaidAmount)
		s.Equal(models.FinePartial, current.Status)
	})

	s.Run("every accepted payment leaves a ledger row with a receipt", func() {
		fine := s.createFine(10.00)
		_, err := s.env.fines.Pay(s.ctx, fine.ID, 6.00, "CASH", "")
		s.Require().NoError(err)
		_, err = s.env.fines.Pay(s.ctx, fine.ID, 4.00, "CARD", "RCPT-42")
		s.Require().NoError(err)

		payments, err := s.env.fines.ListPayments(s.ctx, fine.ID)
		s.Require().NoError(err)
		s.Require().Len(payments, 2)
		s.NotEmpty(payments[0].Reference, "a receipt reference is generated when none is given")
		s.Equal("RCPT-42", payments[1].Reference)
		s.Equal(6.00, payments[0].Amount)
		s.Equal(4.00, payments[1].Amount)
	})

	s.Run("a settled fine takes no further payments", func() {
		fine := s.createFine(5.00)
		_, err := s.env.fines.Pay(s.ctx, fine.ID, 5.00, "CASH", "")
		s.Require().NoError(err)

		_, err = s.env.fines.Pay(s.ctx, fine.ID, 1.00, "CASH", "")
		s.ErrorIs(err, domain.ErrAlreadyResolved)
	})
}

func (s *FineSuite) TestWaiveAndCancel() {
	s.Run("waive is terminal", func() {
		fine := s.createFine(8.00)
		staffID := uint(99)

		waived, err := s.env.fines.Waive(s.ctx, fine.ID, staffID, "first offense")
		s.Require().NoError(err)
		s.Equal(models.FineWaived, waived.Fine.Status)
		s.Require().NotNil(waived.Fine.WaivedBy)
		s.Equal(staffID, *waived.Fine.WaivedBy)

		_, err = s.env.fines.Pay(s.ctx, fine.ID, 1.00, "CASH", "")
		s.ErrorIs(err, domain.ErrAlreadyResolved)
		_, err = s.env.fines.Waive(s.ctx, fine.ID, staffID, "again")
		s.ErrorIs(err, domain.ErrAlreadyResolved)
	})

	s.Run("cancel is terminal", func() {
		fine := s.createFine(8.00)

		cancelled, err := s.env.fines.Cancel(s.ctx, fine.ID, "assessed in error")
		s.Require().NoError(err)
		s.Equal(models.FineCancelled, cancelled.Fine.Status)
		s.Equal("assessed in error", cancelled.Fine.CancelReason)

		_, err = s.env.fines.Cancel(s.ctx, fine.ID, "again")
		s.ErrorIs(err, domain.ErrAlreadyResolved)
	})

	s.Run("resolved fines drop out of the outstanding balance", func() {
		fine := s.createFine(8.00)
		outstanding, err := s.env.store.Fines().OutstandingTotalByPatron(s.ctx, fine.PatronID)
		s.Require().NoError(err)
		s.Equal(8.00, outstanding)

		_, err = s.env.fines.Waive(s.ctx, fine.ID, 1, "")
		s.Require().NoError(err)

		outstanding, err = s.env.store.Fines().OutstandingTotalByPatron(s.ctx, fine.PatronID)
		s.Require().NoError(err)
		s.Equal(0.0, outstanding)
	})
}
