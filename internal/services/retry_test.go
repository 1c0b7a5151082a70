package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"image-translator-backend/internal/services"
)

func TestRetrier_SucceedsAfterFailures(t *testing.T) {
	r := services.NewRetrier(3, 0)

	calls := 0
	err := r.Do(t.Context(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return assert.AnError
		}
		return nil
	}, func(error) bool { return true })

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_Exhausted(t *testing.T) {
	r := services.NewRetrier(3, 0)

	err := r.Do(t.Context(), func(ctx context.Context) error {
		return assert.AnError
	}, func(error) bool { return true })

	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestRetrier_StopsOnPermanentError(t *testing.T) {
	r := services.NewRetrier(5, 0)
	permanent := errors.New("permanent")

	calls := 0
	err := r.Do(t.Context(), func(ctx context.Context) error {
		calls++
		return permanent
	}, func(err error) bool { return !errors.Is(err, permanent) })

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetrier_HonorsContext(t *testing.T) {
	r := services.NewRetrier(3, time.Hour)
	ctx, cancel := context.WithCancel(t.Context())

	calls := 0
	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return assert.AnError
	}, func(error) bool { return true })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
