// Package memory provides an in-memory Store implementation with the same
// transactional semantics as the gorm store: Atomic blocks serialize on one
// mutex and roll the state back on error. It backs the service tests and is
// usable standalone for demos.
package memory

import (
	"context"
	"sync"
	"time"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/adapters/persistence/repositories"
)

// state is the whole dataset. Entities are stored by value; readers get
// copies, so aliasing bugs cannot leak across the repository boundary.
type state struct {
	books        map[uint]models.Book
	borrows      map[uint]models.Borrow
	reservations map[uint]models.Reservation
	fines        map[uint]models.Fine
	payments     map[uint]models.FinePayment
	patrons      map[uint]models.Patron
	cards        map[uint]models.LibraryCard
	seq          uint
}

func newState() *state {
	return &state{
		books:        make(map[uint]models.Book),
		borrows:      make(map[uint]models.Borrow),
		reservations: make(map[uint]models.Reservation),
		fines:        make(map[uint]models.Fine),
		payments:     make(map[uint]models.FinePayment),
		patrons:      make(map[uint]models.Patron),
		cards:        make(map[uint]models.LibraryCard),
	}
}

func (st *state) nextID() uint {
	st.seq++
	return st.seq
}

// clone copies every map. Values are copied shallowly; pointer fields are
// replaced (never mutated through) by the repositories, so the snapshot
// stays intact.
func (st *state) clone() *state {
	cp := &state{
		books:        make(map[uint]models.Book, len(st.books)),
		borrows:      make(map[uint]models.Borrow, len(st.borrows)),
		reservations: make(map[uint]models.Reservation, len(st.reservations)),
		fines:        make(map[uint]models.Fine, len(st.fines)),
		payments:     make(map[uint]models.FinePayment, len(st.payments)),
		patrons:      make(map[uint]models.Patron, len(st.patrons)),
		cards:        make(map[uint]models.LibraryCard, len(st.cards)),
		seq:          st.seq,
	}
	for k, v := range st.books {
		cp.books[k] = v
	}
	for k, v := range st.borrows {
		cp.borrows[k] = v
	}
	for k, v := range st.reservations {
		cp.reservations[k] = v
	}
	for k, v := range st.fines {
		cp.fines[k] = v
	}
	for k, v := range st.payments {
		cp.payments[k] = v
	}
	for k, v := range st.patrons {
		cp.patrons[k] = v
	}
	for k, v := range st.cards {
		cp.cards[k] = v
	}
	return cp
}

// Store implements repositories.Store in memory
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) Books() repositories.BookRepository { return &bookRepo{st: s.st, lk: &s.mu} }
func (s *Store) Borrows() repositories.BorrowRepository {
	return &borrowRepo{st: s.st, lk: &s.mu}
}
func (s *Store) Reservations() repositories.ReservationRepository {
	return &reservationRepo{st: s.st, lk: &s.mu}
}
func (s *Store) Fines() repositories.FineRepository { return &fineRepo{st: s.st, lk: &s.mu} }
func (s *Store) Patrons() repositories.PatronRepository {
	return &patronRepo{st: s.st, lk: &s.mu}
}

// Atomic serializes on the store mutex, snapshots the state and restores it
// when fn fails — a failed atomic operation leaves the pre-call state.
func (s *Store) Atomic(_ context.Context, fn func(repositories.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&txStore{st: s.st}); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

// txStore is the view handed to Atomic callbacks: same state, no locking
// (the outer mutex is already held).
type txStore struct {
	st *state
}

func (t *txStore) Books() repositories.BookRepository { return &bookRepo{st: t.st, lk: noLock{}} }
func (t *txStore) Borrows() repositories.BorrowRepository {
	return &borrowRepo{st: t.st, lk: noLock{}}
}
func (t *txStore) Reservations() repositories.ReservationRepository {
	return &reservationRepo{st: t.st, lk: noLock{}}
}
func (t *txStore) Fines() repositories.FineRepository { return &fineRepo{st: t.st, lk: noLock{}} }
func (t *txStore) Patrons() repositories.PatronRepository {
	return &patronRepo{st: t.st, lk: noLock{}}
}

// Atomic on a transaction view runs inline; the outer block already owns
// the lock and the snapshot.
func (t *txStore) Atomic(_ context.Context, fn func(repositories.Store) error) error {
	return fn(t)
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

func stampCreate(createdAt *time.Time) {
	if createdAt.IsZero() {
		*createdAt = time.Now()
	}
}
