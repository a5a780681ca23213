package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/adapters/persistence/repositories"
	"openshelf/internal/core/domain"
)

func TestAtomicCommitsOnSuccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Atomic(ctx, func(st repositories.Store) error {
		return st.Books().Create(ctx, &models.Book{Title: "Committed"})
	})
	require.NoError(t, err)

	count, err := store.Books().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAtomicRollsBackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	book := &models.Book{Title: "Steady"}
	require.NoError(t, store.Books().Create(ctx, book))

	boom := errors.New("boom")
	err := store.Atomic(ctx, func(st repositories.Store) error {
		if err := st.Books().UpdateAvailability(ctx, book.ID, domain.StatusBorrowed); err != nil {
			return err
		}
		if err := st.Books().Create(ctx, &models.Book{Title: "Phantom"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Every write inside the failed block is undone
	current, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, current.Availability)

	count, err := store.Books().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNestedAtomicSharesTheOuterBlock(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.Atomic(ctx, func(st repositories.Store) error {
		if err := st.Books().Create(ctx, &models.Book{Title: "Inner"}); err != nil {
			return err
		}
		// An inner Atomic runs inline; its writes fall with the outer block
		if err := st.Atomic(ctx, func(inner repositories.Store) error {
			return inner.Books().Create(ctx, &models.Book{Title: "Nested"})
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := store.Books().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestReadsReturnCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	book := &models.Book{Title: "Original"}
	require.NoError(t, store.Books().Create(ctx, book))

	got, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	got.Title = "Scribbled"

	again, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Title)
}

func TestGetByIDMiss(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Books().GetByID(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
