package util

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestStartSpanConcurrentFirstUse(t *testing.T) {
	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, span := StartSpan(context.Background(), "concurrent", "worker", "test")
			defer span.End()
			if span == nil {
				return errors.New("nil span")
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.NotNil(t, GetTracer())
}

func TestGetLoggerConcurrentFirstUse(t *testing.T) {
	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			if GetLogger() == nil {
				return errors.New("nil logger")
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestRecordErrorReturnsErr(t *testing.T) {
	_, span := StartSpan(context.Background(), "record")
	defer span.End()

	err := errors.New("boom")
	assert.Same(t, err, RecordError(span, err))
	assert.NoError(t, RecordError(span, nil))
}
