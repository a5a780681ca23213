package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/core/domain"
)

// fineRepository implements FineRepository interface
type fineRepository struct {
	db *gorm.DB
}

// NewFineRepository creates a new fine repository
func NewFineRepository(db *gorm.DB) FineRepository {
	return &fineRepository{db: db}
}

// Create creates a new fine
func (r *fineRepository) Create(ctx context.Context, fine *models.Fine) error {
	return r.db.WithContext(ctx).Create(fine).Error
}

// GetByID gets a fine by ID
func (r *fineRepository) GetByID(ctx context.Context, id uint) (*models.Fine, error) {
	var fine models.Fine
	err := r.db.WithContext(ctx).First(&fine, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fine, nil
}

// Update persists fine mutations
func (r *fineRepository) Update(ctx context.Context, fine *models.Fine) error {
	return r.db.WithContext(ctx).Save(fine).Error
}

// OutstandingTotalByPatron sums unpaid balances across open fines
func (r *fineRepository) OutstandingTotalByPatron(ctx context.Context, patronID uint) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Fine{}).
		Select("COALESCE(SUM(amount - paid_amount), 0)").
		Where("patron_id = ? AND status IN ?", patronID, []string{models.FinePending, models.FinePartial}).
		Scan(&total).Error
	return total, err
}

// HasOverdueFineSince reports whether an overdue fine for the borrow exists
// created at or after the given time. Cancelled fines do not count: a
// cancellation voids the assessment, so it must not hold the cooldown.
func (r *fineRepository) HasOverdueFineSince(ctx context.Context, borrowID uint, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Fine{}).
		Where("borrow_id = ? AND reason = ? AND created_at >= ? AND status <> ?",
			borrowID, models.FineReasonOverdue, since, models.FineCancelled).
		Count(&count).Error
	return count > 0, err
}

// AddPayment appends a payment ledger row
func (r *fineRepository) AddPayment(ctx context.Context, payment *models.FinePayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// ListPayments returns all payments recorded against a fine, oldest first
func (r *fineRepository) ListPayments(ctx context.Context, fineID uint) ([]*models.FinePayment, error) {
	var payments []*models.FinePayment
	err := r.db.WithContext(ctx).
		Where("fine_id = ?", fineID).
		Order("paid_at ASC, id ASC").
		Find(&payments).Error
	return payments, err
}
