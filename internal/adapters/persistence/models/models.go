package models

import (
	"time"

	"gorm.io/gorm"

	"openshelf/internal/core/domain"
)

// ============================================================
// Patrons & Cards
// ============================================================

// Patron represents patrons table
type Patron struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Card      *LibraryCard   `gorm:"foreignKey:PatronID" json:"card,omitempty"`
}

func (Patron) TableName() string {
	return "patrons"
}

// Card statuses
const (
	CardActive    = "ACTIVE"
	CardSuspended = "SUSPENDED"
)

// LibraryCard represents library_cards table
type LibraryCard struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	PatronID    uint       `gorm:"uniqueIndex;not null" json:"patron_id"`
	Number      string     `gorm:"uniqueIndex;size:20;not null" json:"number"`
	Status      string     `gorm:"size:15;default:'ACTIVE'" json:"status"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expires_at"`
	SuspendedAt *time.Time `json:"suspended_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LibraryCard) TableName() string {
	return "library_cards"
}

// IsUsable reports whether the card admits circulation actions at the given time
func (c *LibraryCard) IsUsable(now time.Time) bool {
	return c.Status == CardActive && c.ExpiresAt.After(now)
}

// ============================================================
// Books
// ============================================================

// Book represents books table. Availability is written only through the
// domain transition table, never by direct assignment in services.
type Book struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	Title        string              `gorm:"size:255;not null" json:"title"`
	Author       string              `gorm:"size:255" json:"author"`
	ISBN         string              `gorm:"size:20;index" json:"isbn"`
	Availability domain.Availability `gorm:"size:15;default:'AVAILABLE';index" json:"availability"`
	CreatedAt    time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt      `gorm:"index" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

// ============================================================
// Borrows
// ============================================================

// Borrow statuses
const (
	BorrowActive    = "ACTIVE"
	BorrowOverdue   = "OVERDUE"
	BorrowCompleted = "COMPLETED"
	BorrowCancelled = "CANCELLED"
)

// OpenBorrowStatuses are the statuses of a borrow that still holds the book
var OpenBorrowStatuses = []string{BorrowActive, BorrowOverdue}

// Borrow represents borrows table. Rows are never deleted, only moved to a
// terminal status.
type Borrow struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	BookID       uint       `gorm:"not null;index" json:"book_id"`
	PatronID     uint       `gorm:"not null;index" json:"patron_id"`
	BorrowedAt   time.Time  `gorm:"not null" json:"borrowed_at"`
	DueAt        time.Time  `gorm:"not null;index" json:"due_at"`
	ReturnedAt   *time.Time `json:"returned_at"`
	RenewalCount int        `gorm:"default:0" json:"renewal_count"`
	Status       string     `gorm:"size:15;default:'ACTIVE';index" json:"status"`
	Notes        string     `gorm:"size:255" json:"notes"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Book         Book       `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Patron       Patron     `gorm:"foreignKey:PatronID" json:"patron,omitempty"`
}

func (Borrow) TableName() string {
	return "borrows"
}

// IsOpen reports whether the borrow still holds the book
func (b *Borrow) IsOpen() bool {
	return b.Status == BorrowActive || b.Status == BorrowOverdue
}

// ============================================================
// Reservations
// ============================================================

// Reservation statuses
const (
	ReservationActive    = "ACTIVE"
	ReservationFulfilled = "FULFILLED"
	ReservationCancelled = "CANCELLED"
	ReservationExpired   = "EXPIRED"
)

// Reservation represents reservations table. Queue order within a book is
// by created_at ascending (FIFO).
type Reservation struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	BookID              uint       `gorm:"not null;index" json:"book_id"`
	PatronID            uint       `gorm:"not null;index" json:"patron_id"`
	Status              string     `gorm:"size:15;default:'ACTIVE';index" json:"status"`
	ExpiresAt           time.Time  `gorm:"not null" json:"expires_at"`
	FulfilledByBorrowID *uint      `json:"fulfilled_by_borrow_id"`
	CancelledAt         *time.Time `json:"cancelled_at"`
	CancelReason        string     `gorm:"size:255" json:"cancel_reason"`
	CreatedAt           time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Book                Book       `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Patron              Patron     `gorm:"foreignKey:PatronID" json:"patron,omitempty"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// IsActive reports whether the reservation still claims a place in the queue
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationActive
}

// ============================================================
// Fines & Payments
// ============================================================

// Fine reasons
const (
	FineReasonOverdue    = "OVERDUE"
	FineReasonLost       = "LOST"
	FineReasonDamaged    = "DAMAGED"
	FineReasonLate       = "LATE"
	FineReasonProcessing = "PROCESSING"
	FineReasonOther      = "OTHER"
)

// Fine statuses
const (
	FinePending   = "PENDING"
	FinePartial   = "PARTIAL"
	FinePaid      = "PAID"
	FineWaived    = "WAIVED"
	FineCancelled = "CANCELLED"
)

// Fine represents fines table. Amount and PaidAmount are mutated only by the
// fine ledger service, never by direct field edits elsewhere.
type Fine struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PatronID     uint       `gorm:"not null;index" json:"patron_id"`
	BookID       *uint      `gorm:"index" json:"book_id"`
	BorrowID     *uint      `gorm:"index" json:"borrow_id"`
	Amount       float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaidAmount   float64    `gorm:"type:decimal(10,2);default:0" json:"paid_amount"`
	Reason       string     `gorm:"size:15;not null" json:"reason"`
	Status       string     `gorm:"size:15;default:'PENDING';index" json:"status"`
	DueAt        time.Time  `json:"due_at"`
	PaidAt       *time.Time `json:"paid_at"`
	WaivedBy     *uint      `json:"waived_by"`
	WaiveReason  string     `gorm:"size:255" json:"waive_reason"`
	CancelReason string     `gorm:"size:255" json:"cancel_reason"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Patron       Patron     `gorm:"foreignKey:PatronID" json:"patron,omitempty"`
	Book         *Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (Fine) TableName() string {
	return "fines"
}

// Balance returns the remaining amount owed. Paid and waived fines owe nothing.
func (f *Fine) Balance() float64 {
	if f.Status == FinePaid || f.Status == FineWaived || f.Status == FineCancelled {
		return 0
	}
	return f.Amount - f.PaidAmount
}

// IsResolved reports whether the fine reached a terminal status
func (f *Fine) IsResolved() bool {
	return f.Status == FinePaid || f.Status == FineWaived || f.Status == FineCancelled
}

// FinePayment represents fine_payments table — one row per accepted payment
type FinePayment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FineID    uint      `gorm:"not null;index" json:"fine_id"`
	Amount    float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method    string    `gorm:"size:20;not null" json:"method"`
	Reference string    `gorm:"size:64;uniqueIndex" json:"reference"`
	PaidAt    time.Time `gorm:"not null" json:"paid_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (FinePayment) TableName() string {
	return "fine_payments"
}

// AutoMigrate runs auto migration for all circulation tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Patron{},
		&LibraryCard{},
		&Book{},
		&Borrow{},
		&Reservation{},
		&Fine{},
		&FinePayment{},
	)
}
