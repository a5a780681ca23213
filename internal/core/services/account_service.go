package services

import (
	"context"
	"time"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/adapters/persistence/repositories"
)

// AccountService builds read-only patron account summaries. Everything is
// derived from borrow, fine and card state on demand; nothing is cached.
type AccountService struct {
	store repositories.Store
}

// NewAccountService creates a new account service
func NewAccountService(store repositories.Store) *AccountService {
	return &AccountService{store: store}
}

// AccountSummary represents a patron's current standing
type AccountSummary struct {
	Patron           *models.Patron   `json:"patron"`
	ActiveBorrows    []*models.Borrow `json:"active_borrows"`
	OverdueCount     int              `json:"overdue_count"`
	ActiveHolds      int64            `json:"active_holds"`
	OutstandingFines float64          `json:"outstanding_fines"`
	CardStatus       string           `json:"card_status"`
}

// GetSummary returns the patron's account summary
func (s *AccountService) GetSummary(ctx context.Context, patronID uint) (*AccountSummary, error) {
	patron, err := s.store.Patrons().GetByID(ctx, patronID)
	if err != nil {
		return nil, err
	}

	borrows, err := s.store.Borrows().ListOpenByPatron(ctx, patronID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	overdueCount := 0
	for _, b := range borrows {
		if b.Status == models.BorrowOverdue || b.DueAt.Before(now) {
			overdueCount++
		}
	}

	holds, err := s.store.Reservations().CountActiveByPatron(ctx, patronID)
	if err != nil {
		return nil, err
	}

	outstanding, err := s.store.Fines().OutstandingTotalByPatron(ctx, patronID)
	if err != nil {
		return nil, err
	}

	cardStatus := "NONE"
	if patron.Card != nil {
		cardStatus = patron.Card.Status
		if cardStatus == models.CardActive && !patron.Card.ExpiresAt.After(now) {
			cardStatus = "EXPIRED"
		}
	}

	return &AccountSummary{
		Patron:           patron,
		ActiveBorrows:    borrows,
		OverdueCount:     overdueCount,
		ActiveHolds:      holds,
		OutstandingFines: outstanding,
		CardStatus:       cardStatus,
	}, nil
}
