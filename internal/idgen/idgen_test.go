package idgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"live-auction/internal/auctionerrors"

	"github.com/stretchr/testify/require"
)

func TestRandomID(t *testing.T) {
	for i := 0; i < 200; i++ {
		id, err := RandomID()
		require.NoError(t, err)
		require.Len(t, id, Length)
		for _, r := range id {
			require.True(t, strings.ContainsRune(Alphabet, r), "unexpected symbol %q", r)
		}
	}
}

func TestGenerator_InsertSkipsTaken(t *testing.T) {
	ctx := context.Background()
	store := func(_ context.Context, _ string) error { return nil }

	t.Run("skips_taken_candidates", func(t *testing.T) {
		candidates := []string{"aaaaaa", "bbbbbb", "cccccc"}
		i := 0
		g := NewWithSource(func() (string, error) {
			id := candidates[i]
			i++
			return id, nil
		}, MaxAttempts)

		taken := map[string]bool{"aaaaaa": true, "bbbbbb": true}
		id, err := g.Insert(ctx, func(_ context.Context, id string) (bool, error) {
			return taken[id], nil
		}, store)
		require.NoError(t, err)
		require.Equal(t, "cccccc", id)
	})

	t.Run("exhausted_after_bounded_attempts", func(t *testing.T) {
		calls := 0
		g := NewWithSource(func() (string, error) { return "same00", nil }, MaxAttempts)

		_, err := g.Insert(ctx, func(_ context.Context, _ string) (bool, error) {
			calls++
			return true, nil
		}, store)
		require.True(t, errors.Is(err, auctionerrors.ErrIDSpaceExhausted), "got %v", err)
		require.Equal(t, MaxAttempts, calls)
	})

	t.Run("lookup_error_is_returned", func(t *testing.T) {
		g := New()
		_, err := g.Insert(ctx, func(_ context.Context, _ string) (bool, error) {
			return false, errors.New("db down")
		}, store)
		require.Error(t, err)
		require.False(t, errors.Is(err, auctionerrors.ErrIDSpaceExhausted))
	})
}

func TestGenerator_Insert(t *testing.T) {
	ctx := context.Background()
	free := func(_ context.Context, _ string) (bool, error) { return false, nil }

	t.Run("duplicate_insert_draws_again", func(t *testing.T) {
		candidates := []string{"aaaaaa", "bbbbbb"}
		i := 0
		g := NewWithSource(func() (string, error) {
			id := candidates[i]
			i++
			return id, nil
		}, MaxAttempts)

		var inserted []string
		id, err := g.Insert(ctx, free, func(_ context.Context, id string) error {
			inserted = append(inserted, id)
			if id == "aaaaaa" {
				return fmt.Errorf("insert auction %s: %w", id, auctionerrors.ErrDuplicateID)
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, "bbbbbb", id)
		require.Equal(t, []string{"aaaaaa", "bbbbbb"}, inserted)
	})

	t.Run("duplicates_exhaust_attempts", func(t *testing.T) {
		calls := 0
		g := NewWithSource(func() (string, error) { return "same00", nil }, MaxAttempts)

		_, err := g.Insert(ctx, free, func(_ context.Context, _ string) error {
			calls++
			return auctionerrors.ErrDuplicateID
		})
		require.True(t, errors.Is(err, auctionerrors.ErrIDSpaceExhausted), "got %v", err)
		require.Equal(t, MaxAttempts, calls)
	})

	t.Run("other_insert_error_is_returned", func(t *testing.T) {
		calls := 0
		boom := errors.New("db down")
		g := New()

		_, err := g.Insert(ctx, free, func(_ context.Context, _ string) error {
			calls++
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Equal(t, 1, calls)
	})
}
