package services

import (
	"context"
	"fmt"
	"time"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/adapters/persistence/repositories"
	"openshelf/internal/adapters/persistence/repositories/memory"
	"openshelf/internal/config"
	"openshelf/internal/core/domain"
)

// testPolicy mirrors the documented defaults so scenario numbers in the
// tests stay readable.
func testPolicy() config.Policy {
	return config.Policy{
		MaxLoansPerPatron:       5,
		LoanDays:                14,
		MaxRenewals:             2,
		RenewalExtensionDays:    7,
		OverdueDailyRate:        0.50,
		FineDueDays:             30,
		ReservationTTLDays:      7,
		MaxQueueLength:          10,
		BorrowFineThreshold:     10.00,
		ReserveFineThreshold:    25.00,
		SuspensionThresholdDays: 30,
	}
}

// testEnv wires every service over one in-memory store
type testEnv struct {
	store        *memory.Store
	policy       config.Policy
	gate         *EligibilityService
	fines        *FineService
	reservations *ReservationService
	lending      *LendingService
	sweep        *SweepService
	accounts     *AccountService

	patronSeq int
}

func newTestEnv() *testEnv {
	store := memory.NewStore()
	policy := testPolicy()
	gate := NewEligibilityService(policy)
	fines := NewFineService(store, policy)
	reservations := NewReservationService(store, gate, policy)
	return &testEnv{
		store:        store,
		policy:       policy,
		gate:         gate,
		fines:        fines,
		reservations: reservations,
		lending:      NewLendingService(store, gate, fines, policy),
		sweep:        NewSweepService(store, fines, reservations, policy),
		accounts:     NewAccountService(store),
	}
}

// newPatron creates a patron with an active card valid for a year
func (e *testEnv) newPatron(name string) uint {
	e.patronSeq++
	patron := &models.Patron{
		Name:  name,
		Email: fmt.Sprintf("%s%d@example.org", name, e.patronSeq),
		Card: &models.LibraryCard{
			Number:    fmt.Sprintf("LC-%04d", e.patronSeq),
			Status:    models.CardActive,
			ExpiresAt: time.Now().AddDate(1, 0, 0),
		},
	}
	if err := e.store.Patrons().Create(context.Background(), patron); err != nil {
		panic(err)
	}
	return patron.ID
}

// newBook creates an available book
func (e *testEnv) newBook(title string) uint {
	book := &models.Book{Title: title, Author: "Test Author"}
	if err := e.store.Books().Create(context.Background(), book); err != nil {
		panic(err)
	}
	return book.ID
}

// commitFailStore wraps a Store and fails the next Atomic block after its
// callback ran, the way a conflict at commit time does. The wrapped store
// rolls the block back; later blocks run normally.
type commitFailStore struct {
	repositories.Store
	err   error
	armed bool
}

func (s *commitFailStore) Atomic(ctx context.Context, fn func(repositories.Store) error) error {
	if !s.armed {
		return s.Store.Atomic(ctx, fn)
	}
	s.armed = false
	return s.Store.Atomic(ctx, func(st repositories.Store) error {
		if err := fn(st); err != nil {
			return err
		}
		return s.err
	})
}

// openBorrow inserts an open borrow directly, bypassing the workflow, for
// fixtures that need a specific due date
func (e *testEnv) openBorrow(patronID, bookID uint, dueAt time.Time) *models.Borrow {
	ctx := context.Background()
	borrow := &models.Borrow{
		BookID:     bookID,
		PatronID:   patronID,
		BorrowedAt: dueAt.AddDate(0, 0, -14),
		DueAt:      dueAt,
		Status:     models.BorrowActive,
	}
	if err := e.store.Borrows().Create(ctx, borrow); err != nil {
		panic(err)
	}
	if err := e.store.Books().UpdateAvailability(ctx, bookID, domain.StatusBorrowed); err != nil {
		panic(err)
	}
	return borrow
}
