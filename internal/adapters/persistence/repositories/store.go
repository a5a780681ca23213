package repositories

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// gormStore implements Store over a *gorm.DB (plain connection or open
// transaction — Atomic hands out a transaction-scoped copy).
type gormStore struct {
	db *gorm.DB
}

// NewStore creates a gorm-backed store
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Books() BookRepository               { return &bookRepository{db: s.db} }
func (s *gormStore) Borrows() BorrowRepository           { return &borrowRepository{db: s.db} }
func (s *gormStore) Reservations() ReservationRepository { return &reservationRepository{db: s.db} }
func (s *gormStore) Fines() FineRepository               { return &fineRepository{db: s.db} }
func (s *gormStore) Patrons() PatronRepository           { return &patronRepository{db: s.db} }

// Atomic runs fn in a database transaction. A transient MySQL conflict
// (deadlock or lock wait timeout) gets one retry; everything else surfaces
// unchanged and rolls back.
func (s *gormStore) Atomic(ctx context.Context, fn func(Store) error) error {
	run := func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormStore{db: tx})
		})
	}

	err := run()
	if err != nil && isTransientConflict(err) {
		err = run()
	}
	return err
}

// MySQL server error numbers for retryable conflicts
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

func isTransientConflict(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == mysqlErrDeadlock || myErr.Number == mysqlErrLockWaitTimeout
}
