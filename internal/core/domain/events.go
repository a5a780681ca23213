package domain

import "time"

// Event is a domain event produced by a workflow operation. Events are
// returned to the caller for dispatch (notifications, search indexing);
// the engine itself never delivers them.
type Event interface {
	EventName() string
}

// BorrowCreated is emitted when a borrow is opened
type BorrowCreated struct {
	BorrowID uint
	BookID   uint
	PatronID uint
	DueAt    time.Time
}

func (BorrowCreated) EventName() string { return "borrow.created" }

// BorrowReturned is emitted when a borrow completes
type BorrowReturned struct {
	BorrowID uint
	BookID   uint
	PatronID uint
	Overdue  bool
}

func (BorrowReturned) EventName() string { return "borrow.returned" }

// BorrowRenewed is emitted when a borrow due date is extended
type BorrowRenewed struct {
	BorrowID     uint
	NewDueAt     time.Time
	RenewalCount int
}

func (BorrowRenewed) EventName() string { return "borrow.renewed" }

// BorrowMarkedOverdue is emitted by the sweep when a borrow passes its due date
type BorrowMarkedOverdue struct {
	BorrowID uint
	PatronID uint
	DueAt    time.Time
}

func (BorrowMarkedOverdue) EventName() string { return "borrow.marked_overdue" }

// ReservationCreated is emitted when a hold is placed
type ReservationCreated struct {
	ReservationID uint
	BookID        uint
	PatronID      uint
	ExpiresAt     time.Time
}

func (ReservationCreated) EventName() string { return "reservation.created" }

// ReservationFulfilled is emitted when a hold converts into a borrow
type ReservationFulfilled struct {
	ReservationID uint
	BorrowID      uint
}

func (ReservationFulfilled) EventName() string { return "reservation.fulfilled" }

// ReservationCancelled is emitted when a hold is cancelled
type ReservationCancelled struct {
	ReservationID uint
	Reason        string
}

func (ReservationCancelled) EventName() string { return "reservation.cancelled" }

// ReservationExpired is emitted by the sweep for stale holds
type ReservationExpired struct {
	ReservationID uint
	BookID        uint
	PatronID      uint
}

func (ReservationExpired) EventName() string { return "reservation.expired" }

// HoldReadyForPickup is emitted when a returned book is parked for the next
// patron in the queue
type HoldReadyForPickup struct {
	ReservationID uint
	BookID        uint
	PatronID      uint
}

func (HoldReadyForPickup) EventName() string { return "reservation.ready_for_pickup" }

// FineCreated is emitted when a fine is assessed
type FineCreated struct {
	FineID   uint
	PatronID uint
	Amount   float64
	Reason   string
}

func (FineCreated) EventName() string { return "fine.created" }

// FinePaid is emitted for every accepted payment, partial or final
type FinePaid struct {
	FineID    uint
	Amount    float64
	Reference string
	Settled   bool
}

func (FinePaid) EventName() string { return "fine.paid" }

// FineWaived is emitted when staff waive a fine
type FineWaived struct {
	FineID   uint
	WaivedBy uint
}

func (FineWaived) EventName() string { return "fine.waived" }

// CardSuspensionRequested is emitted by the sweep when a patron crosses the
// suspension threshold; the card itself is suspended by the engine, the event
// lets collaborators notify the patron.
type CardSuspensionRequested struct {
	PatronID uint
	CardID   uint
}

func (CardSuspensionRequested) EventName() string { return "card.suspension_requested" }
