package service

import (
	"context"
	"time"

	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/util"

	"go.uber.org/zap"
)

const compensationTimeout = 5 * time.Second

type appliedDelta struct {
	ingredientID string
	amount       float64
}

// stockLedger records the stock adjustments of one compound operation so a
// failure part way through can hand the quantities back.
type stockLedger struct {
	inventory *InventoryService
	applied   []appliedDelta
	logger    *zap.Logger
}

func newStockLedger(inventory *InventoryService) *stockLedger {
	return &stockLedger{inventory: inventory, logger: util.GetLogger()}
}

func (l *stockLedger) apply(ctx context.Context, ingredientID string, amount float64) error {
	if _, err := l.inventory.AdjustStock(ctx, ingredientID, amount); err != nil {
		return err
	}
	l.applied = append(l.applied, appliedDelta{ingredientID: ingredientID, amount: amount})
	return nil
}

// restore adds every use back to stock
func (l *stockLedger) restore(ctx context.Context, uses []models.IngredientUse) error {
	for _, use := range uses {
		if err := l.apply(ctx, use.ID, use.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// deduct takes every use out of stock
func (l *stockLedger) deduct(ctx context.Context, uses []models.IngredientUse) error {
	for _, use := range uses {
		if err := l.apply(ctx, use.ID, -use.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// compensate reverts applied adjustments newest first. It runs detached from
// the request context so a timed out request still rolls back.
func (l *stockLedger) compensate(ctx context.Context, reason string) {
	if len(l.applied) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	l.logger.Warn("Compensating stock adjustments",
		zap.String("reason", reason),
		zap.Int("adjustments", len(l.applied)))

	for i := len(l.applied) - 1; i >= 0; i-- {
		d := l.applied[i]
		if _, err := l.inventory.AdjustStock(ctx, d.ingredientID, -d.amount); err != nil {
			util.CompensationsTotal.WithLabelValues("failed").Inc()
			l.logger.Error("Failed to compensate stock adjustment",
				zap.String("ingredient_id", d.ingredientID),
				zap.Float64("amount", -d.amount),
				zap.Error(err))
			continue
		}
		util.CompensationsTotal.WithLabelValues("ok").Inc()
	}
	l.applied = nil
}
