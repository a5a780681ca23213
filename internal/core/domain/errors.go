package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Circulation errors — every expected outcome a caller can act on
var (
	ErrBookUnavailable      = errors.New("book is unavailable")
	ErrInvalidTransition    = errors.New("invalid availability transition")
	ErrDuplicateHold        = errors.New("patron already holds or borrows this book")
	ErrQueueFull            = errors.New("reservation queue is full")
	ErrRenewalLimitReached  = errors.New("renewal limit reached")
	ErrRenewalBlockedByHold = errors.New("renewal blocked by an active reservation")
	ErrBorrowNotOpen        = errors.New("borrow is not active or overdue")
	ErrBorrowOverdue        = errors.New("borrow is overdue")
)

// Eligibility errors — one per gate rule so callers can present the exact
// reason. All of them match errors.Is(err, ErrIneligibleBorrower).
var (
	ErrIneligibleBorrower = errors.New("patron is not eligible")
	ErrLoanLimitReached   = fmt.Errorf("%w: loan limit reached", ErrIneligibleBorrower)
	ErrPatronOverdue      = fmt.Errorf("%w: patron has overdue borrows", ErrIneligibleBorrower)
	ErrFineLimitExceeded  = fmt.Errorf("%w: outstanding fines exceed the limit", ErrIneligibleBorrower)
	ErrCardMissing        = fmt.Errorf("%w: patron has no library card", ErrIneligibleBorrower)
	ErrCardInactive       = fmt.Errorf("%w: library card is not active", ErrIneligibleBorrower)
	ErrCardExpired        = fmt.Errorf("%w: library card is expired", ErrIneligibleBorrower)
)

// Fine errors
var (
	ErrPaymentExceedsBalance = errors.New("payment exceeds remaining balance")
	ErrAlreadyResolved       = errors.New("fine is already paid, waived or cancelled")
	ErrInvalidAmount         = errors.New("amount must be positive")
)

// Reservation errors
var (
	ErrReservationNotActive = errors.New("reservation is not active")
)

// TransitionError reports which action was attempted against which state.
// It matches errors.Is(err, ErrInvalidTransition).
type TransitionError struct {
	State  Availability
	Action AvailabilityAction
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid availability transition: cannot %s a %s book", e.Action, e.State)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
