package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/core/domain"
)

// reservationRepository implements ReservationRepository interface
type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

// Create creates a new reservation
func (r *reservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

// GetByID gets a reservation by ID
func (r *reservationRepository) GetByID(ctx context.Context, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).First(&reservation, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// Update persists reservation mutations
func (r *reservationRepository) Update(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Save(reservation).Error
}

// HeadOf returns the oldest live reservation for a book (FIFO), nil when
// the queue is empty. A hold past its expiry no longer claims the book even
// before the sweep flips its status.
func (r *reservationRepository) HeadOf(ctx context.Context, bookID uint) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND status = ? AND expires_at > ?", bookID, models.ReservationActive, time.Now()).
		Order("created_at ASC, id ASC").
		First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// GetActiveByBookAndPatron returns the patron's live hold on a book, nil when none
func (r *reservationRepository) GetActiveByBookAndPatron(ctx context.Context, bookID, patronID uint) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND patron_id = ? AND status = ? AND expires_at > ?",
			bookID, patronID, models.ReservationActive, time.Now()).
		First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// CountActiveByBook counts live holds queued on a book
func (r *reservationRepository) CountActiveByBook(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("book_id = ? AND status = ? AND expires_at > ?", bookID, models.ReservationActive, time.Now()).
		Count(&count).Error
	return count, err
}

// CountActiveByPatron counts the patron's live holds
func (r *reservationRepository) CountActiveByPatron(ctx context.Context, patronID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("patron_id = ? AND status = ? AND expires_at > ?", patronID, models.ReservationActive, time.Now()).
		Count(&count).Error
	return count, err
}

// FindActiveExpiredBefore returns active reservations whose expiry passed
func (r *reservationRepository) FindActiveExpiredBefore(ctx context.Context, asOf time.Time) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.ReservationActive, asOf).
		Order("expires_at ASC").
		Find(&reservations).Error
	return reservations, err
}
