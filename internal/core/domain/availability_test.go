package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		name   string
		state  Availability
		action AvailabilityAction
		want   Availability
		ok     bool
	}{
		{"available book can be reserved", StatusAvailable, ActionReserve, StatusReserved, true},
		{"available book can be borrowed", StatusAvailable, ActionBorrow, StatusBorrowed, true},
		{"reserved book can be borrowed", StatusReserved, ActionBorrow, StatusBorrowed, true},
		{"reserved book can release its hold", StatusReserved, ActionCancelReservation, StatusAvailable, true},
		{"borrowed book can be returned", StatusBorrowed, ActionReturn, StatusAvailable, true},
		{"available book cannot be returned", StatusAvailable, ActionReturn, StatusAvailable, false},
		{"available book cannot cancel a hold", StatusAvailable, ActionCancelReservation, StatusAvailable, false},
		{"borrowed book cannot be borrowed again", StatusBorrowed, ActionBorrow, StatusBorrowed, false},
		{"borrowed book cannot be reserved directly", StatusBorrowed, ActionReserve, StatusBorrowed, false},
		{"reserved book cannot be reserved again", StatusReserved, ActionReserve, StatusReserved, false},
		{"reserved book cannot be returned", StatusReserved, ActionReturn, StatusReserved, false},
		{"borrowed book cannot cancel a hold", StatusBorrowed, ActionCancelReservation, StatusBorrowed, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.action)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.want, next)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tc.state, next, "state must not move on an illegal transition")
		})
	}
}

func TestTransitionErrorReportsStateAndAction(t *testing.T) {
	_, err := Transition(StatusBorrowed, ActionBorrow)
	require.Error(t, err)

	var transitionErr *TransitionError
	require.True(t, errors.As(err, &transitionErr))
	assert.Equal(t, StatusBorrowed, transitionErr.State)
	assert.Equal(t, ActionBorrow, transitionErr.Action)
	assert.Contains(t, err.Error(), "BORROW")
	assert.Contains(t, err.Error(), "BORROWED")
}
