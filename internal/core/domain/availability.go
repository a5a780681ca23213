package domain

// Availability represents the circulation state of a book copy
type Availability string

const (
	StatusAvailable Availability = "AVAILABLE"
	StatusBorrowed  Availability = "BORROWED"
	StatusReserved  Availability = "RESERVED"
)

// AvailabilityAction represents an attempted circulation transition
type AvailabilityAction string

const (
	ActionReserve           AvailabilityAction = "RESERVE"
	ActionBorrow            AvailabilityAction = "BORROW"
	ActionReturn            AvailabilityAction = "RETURN"
	ActionCancelReservation AvailabilityAction = "CANCEL_RESERVATION"
)

// transitions is the full legal state machine: state × action → next state.
// A lookup miss means the transition is illegal.
//
// RETURN always lands on AVAILABLE; when a hold is waiting, the caller applies
// a follow-up RESERVE in the same atomic unit after inspecting the queue.
var transitions = map[Availability]map[AvailabilityAction]Availability{
	StatusAvailable: {
		ActionReserve: StatusReserved,
		ActionBorrow:  StatusBorrowed,
	},
	StatusReserved: {
		ActionBorrow:            StatusBorrowed,
		ActionCancelReservation: StatusAvailable,
	},
	StatusBorrowed: {
		ActionReturn: StatusAvailable,
	},
}

// Transition applies an action to an availability state. It is a pure
// function: no lookups beyond the table, no side effects.
func Transition(state Availability, action AvailabilityAction) (Availability, error) {
	next, ok := transitions[state][action]
	if !ok {
		return state, &TransitionError{State: state, Action: action}
	}
	return next, nil
}
