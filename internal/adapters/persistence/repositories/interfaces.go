package repositories

import (
	"context"
	"time"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/core/domain"
)

// BookRepository defines book data access
type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id uint) (*models.Book, error)
	// GetByIDForUpdate loads the book with a write lock when called inside
	// Atomic; concurrent circulation actions on the same book serialize on it.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Book, error)
	UpdateAvailability(ctx context.Context, bookID uint, availability domain.Availability) error
	Count(ctx context.Context) (int64, error)
}

// BorrowRepository defines borrow data access
type BorrowRepository interface {
	Create(ctx context.Context, borrow *models.Borrow) error
	GetByID(ctx context.Context, id uint) (*models.Borrow, error)
	Update(ctx context.Context, borrow *models.Borrow) error
	GetOpenByBook(ctx context.Context, bookID uint) (*models.Borrow, error)
	GetOpenByBookAndPatron(ctx context.Context, bookID, patronID uint) (*models.Borrow, error)
	CountOpenByPatron(ctx context.Context, patronID uint) (int64, error)
	// HasOverdueByPatron reports whether the patron holds any open borrow that
	// is flagged OVERDUE or past due as of the given time.
	HasOverdueByPatron(ctx context.Context, patronID uint, asOf time.Time) (bool, error)
	// FindOpenDueBefore returns open borrows whose due date passed the cutoff,
	// oldest due date first.
	FindOpenDueBefore(ctx context.Context, cutoff time.Time) ([]*models.Borrow, error)
	ListOpenByPatron(ctx context.Context, patronID uint) ([]*models.Borrow, error)
}

// ReservationRepository defines reservation data access
type ReservationRepository interface {
	Create(ctx context.Context, reservation *models.Reservation) error
	GetByID(ctx context.Context, id uint) (*models.Reservation, error)
	Update(ctx context.Context, reservation *models.Reservation) error
	// HeadOf returns the oldest live reservation for a book (FIFO head), or
	// nil when the queue is empty. Live means status ACTIVE and not past
	// expiry: a stale hold stops claiming the book before the sweep flips
	// its status. The other Active* lookups apply the same definition.
	HeadOf(ctx context.Context, bookID uint) (*models.Reservation, error)
	GetActiveByBookAndPatron(ctx context.Context, bookID, patronID uint) (*models.Reservation, error)
	CountActiveByBook(ctx context.Context, bookID uint) (int64, error)
	CountActiveByPatron(ctx context.Context, patronID uint) (int64, error)
	FindActiveExpiredBefore(ctx context.Context, asOf time.Time) ([]*models.Reservation, error)
}

// FineRepository defines fine and payment data access
type FineRepository interface {
	Create(ctx context.Context, fine *models.Fine) error
	GetByID(ctx context.Context, id uint) (*models.Fine, error)
	Update(ctx context.Context, fine *models.Fine) error
	// OutstandingTotalByPatron sums the unpaid balance across pending and
	// partially paid fines.
	OutstandingTotalByPatron(ctx context.Context, patronID uint) (float64, error)
	// HasOverdueFineSince reports whether an overdue fine already exists for
	// the borrow created at or after the given time. Cancelled fines do not
	// count toward the cooldown.
	HasOverdueFineSince(ctx context.Context, borrowID uint, since time.Time) (bool, error)
	AddPayment(ctx context.Context, payment *models.FinePayment) error
	ListPayments(ctx context.Context, fineID uint) ([]*models.FinePayment, error)
}

// PatronRepository defines patron and card data access
type PatronRepository interface {
	Create(ctx context.Context, patron *models.Patron) error
	GetByID(ctx context.Context, id uint) (*models.Patron, error)
	GetCardByPatron(ctx context.Context, patronID uint) (*models.LibraryCard, error)
	SuspendCard(ctx context.Context, cardID uint, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

// Store bundles all repositories behind one unit of work. Services never
// touch *gorm.DB directly; they see this interface only, so tests can swap
// in the memory implementation.
type Store interface {
	Books() BookRepository
	Borrows() BorrowRepository
	Reservations() ReservationRepository
	Fines() FineRepository
	Patrons() PatronRepository
	// Atomic runs fn as one transaction. The Store handed to fn reads and
	// writes uncommitted state; an error rolls everything back. Transient
	// storage conflicts are retried exactly once before surfacing.
	Atomic(ctx context.Context, fn func(Store) error) error
}
