package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dewmini3/CakeCustomizing/internal/redisclient"
	"github.com/dewmini3/CakeCustomizing/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerializesKey(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.Lock(ctx, "option:OPT-0001")
	require.NoError(t, err)

	// a different key is independent
	other, err := l.Lock(ctx, "option:OPT-0002")
	require.NoError(t, err)
	other()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "option:OPT-0001")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()

	again, err := l.Lock(ctx, "option:OPT-0001")
	require.NoError(t, err)
	again()

	assert.Empty(t, l.locks)
}

func TestStoreErrorClassification(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{fmt.Errorf("wrapped: %w", store.ErrNotFound), KindNotFound},
		{store.ErrDuplicate, KindDuplicate},
		{store.ErrConditionFailed, KindInsufficientStock},
		{context.DeadlineExceeded, KindTimeout},
		{redisclient.ErrLockTimeout, KindTimeout},
		{errors.New("connection refused"), KindStoreUnavailable},
		{validationError("bad"), KindValidation},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, KindOf(storeError("op failed", tc.err)), "%v", tc.err)
	}

	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "bad", MessageOf(validationError("bad")))
	assert.Equal(t, "plain", MessageOf(errors.New("plain")))
}
