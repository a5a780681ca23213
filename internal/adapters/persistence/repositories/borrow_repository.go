package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/core/domain"
)

// borrowRepository implements BorrowRepository interface
type borrowRepository struct {
	db *gorm.DB
}

// NewBorrowRepository creates a new borrow repository
func NewBorrowRepository(db *gorm.DB) BorrowRepository {
	return &borrowRepository{db: db}
}

// Create creates a new borrow
func (r *borrowRepository) Create(ctx context.Context, borrow *models.Borrow) error {
	return r.db.WithContext(ctx).Create(borrow).Error
}

// GetByID gets a borrow by ID
func (r *borrowRepository) GetByID(ctx context.Context, id uint) (*models.Borrow, error) {
	var borrow models.Borrow
	err := r.db.WithContext(ctx).First(&borrow, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &borrow, nil
}

// Update persists borrow mutations
func (r *borrowRepository) Update(ctx context.Context, borrow *models.Borrow) error {
	return r.db.WithContext(ctx).Save(borrow).Error
}

// GetOpenByBook returns the open borrow holding a book, nil when none
func (r *borrowRepository) GetOpenByBook(ctx context.Context, bookID uint) (*models.Borrow, error) {
	var borrow models.Borrow
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND status IN ?", bookID, models.OpenBorrowStatuses).
		First(&borrow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &borrow, nil
}

// GetOpenByBookAndPatron returns the patron's open borrow on a book, nil when none
func (r *borrowRepository) GetOpenByBookAndPatron(ctx context.Context, bookID, patronID uint) (*models.Borrow, error) {
	var borrow models.Borrow
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND patron_id = ? AND status IN ?", bookID, patronID, models.OpenBorrowStatuses).
		First(&borrow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &borrow, nil
}

// CountOpenByPatron counts the patron's open borrows
func (r *borrowRepository) CountOpenByPatron(ctx context.Context, patronID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Borrow{}).
		Where("patron_id = ? AND status IN ?", patronID, models.OpenBorrowStatuses).
		Count(&count).Error
	return count, err
}

// HasOverdueByPatron reports whether the patron has any open borrow past due
func (r *borrowRepository) HasOverdueByPatron(ctx context.Context, patronID uint, asOf time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Borrow{}).
		Where("patron_id = ? AND status IN ? AND (status = ? OR due_at < ?)",
			patronID, models.OpenBorrowStatuses, models.BorrowOverdue, asOf).
		Count(&count).Error
	return count > 0, err
}

// FindOpenDueBefore returns open borrows past due, oldest due date first
func (r *borrowRepository) FindOpenDueBefore(ctx context.Context, cutoff time.Time) ([]*models.Borrow, error) {
	var borrows []*models.Borrow
	err := r.db.WithContext(ctx).
		Where("status IN ? AND due_at < ?", models.OpenBorrowStatuses, cutoff).
		Order("due_at ASC").
		Find(&borrows).Error
	return borrows, err
}

// ListOpenByPatron returns the patron's open borrows, due soonest first
func (r *borrowRepository) ListOpenByPatron(ctx context.Context, patronID uint) ([]*models.Borrow, error) {
	var borrows []*models.Borrow
	err := r.db.WithContext(ctx).
		Where("patron_id = ? AND status IN ?", patronID, models.OpenBorrowStatuses).
		Order("due_at ASC").
		Find(&borrows).Error
	return borrows, err
}
