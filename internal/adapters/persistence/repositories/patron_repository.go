package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/core/domain"
)

// patronRepository implements PatronRepository interface
type patronRepository struct {
	db *gorm.DB
}

// NewPatronRepository creates a new patron repository
func NewPatronRepository(db *gorm.DB) PatronRepository {
	return &patronRepository{db: db}
}

// Create creates a new patron (with card, when attached)
func (r *patronRepository) Create(ctx context.Context, patron *models.Patron) error {
	return r.db.WithContext(ctx).Create(patron).Error
}

// GetByID gets a patron by ID with the card preloaded
func (r *patronRepository) GetByID(ctx context.Context, id uint) (*models.Patron, error) {
	var patron models.Patron
	err := r.db.WithContext(ctx).Preload("Card").First(&patron, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &patron, nil
}

// GetCardByPatron returns the patron's card, nil when none is issued
func (r *patronRepository) GetCardByPatron(ctx context.Context, patronID uint) (*models.LibraryCard, error) {
	var card models.LibraryCard
	err := r.db.WithContext(ctx).Where("patron_id = ?", patronID).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// SuspendCard flags a card suspended and stamps the time
func (r *patronRepository) SuspendCard(ctx context.Context, cardID uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.LibraryCard{}).
		Where("id = ?", cardID).
		Updates(map[string]interface{}{
			"status":       models.CardSuspended,
			"suspended_at": at,
		}).Error
}

// Count returns the number of patrons
func (r *patronRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Patron{}).Count(&count).Error
	return count, err
}
