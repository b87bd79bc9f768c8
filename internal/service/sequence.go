package service

import (
	"context"
	"fmt"

	"github.com/dewmini3/CakeCustomizing/internal/store"
	"github.com/dewmini3/CakeCustomizing/internal/util"
)

// SequenceGenerator mints human-readable ids from named counters
type SequenceGenerator struct {
	store store.DocumentStore
}

// NewSequenceGenerator creates a new sequence generator
func NewSequenceGenerator(s store.DocumentStore) *SequenceGenerator {
	return &SequenceGenerator{store: s}
}

// Next returns prefix followed by the next counter value, zero padded to at
// least four digits. Values above 9999 widen the number.
func (g *SequenceGenerator) Next(ctx context.Context, prefix, counter string) (string, error) {
	value, err := g.store.NextSequence(ctx, counter)
	if err != nil {
		return "", storeError("failed to allocate id", err)
	}
	util.SequenceIssuedTotal.WithLabelValues(counter).Inc()
	return formatID(prefix, value), nil
}

func formatID(prefix string, value int64) string {
	return fmt.Sprintf("%s%04d", prefix, value)
}
