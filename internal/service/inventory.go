package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/store"
	"github.com/dewmini3/CakeCustomizing/internal/util"

	"go.uber.org/zap"
)

const (
	stockField  = "stock_quantity"
	defaultUnit = "grams"
)

// InventoryConfig tunes stock adjustment behaviour
type InventoryConfig struct {
	// EnforceFloor rejects deductions that would take stock below zero
	EnforceFloor bool
	// LowStockThreshold triggers a STOCK_LOW event when stock falls below it
	LowStockThreshold float64
}

// InventoryService owns ingredient records and their stock levels
type InventoryService struct {
	store     store.DocumentStore
	seq       *SequenceGenerator
	locker    Locker
	publisher EventPublisher
	cfg       InventoryConfig
	logger    *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(s store.DocumentStore, seq *SequenceGenerator, locker Locker, publisher EventPublisher, cfg InventoryConfig) *InventoryService {
	return &InventoryService{
		store:     s,
		seq:       seq,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		logger:    util.GetLogger(),
	}
}

// IngredientInput is the intake payload for a new ingredient
type IngredientInput struct {
	Name          string   `json:"name"`
	StockQuantity *float64 `json:"stock_quantity"`
	Unit          string   `json:"unit"`
}

// IngredientUpdate holds the fields an ingredient update may change
type IngredientUpdate struct {
	Name          *string  `json:"name"`
	StockQuantity *float64 `json:"stock_quantity"`
	Unit          *string  `json:"unit"`
}

// Get returns one ingredient
func (s *InventoryService) Get(ctx context.Context, id string) (*models.Ingredient, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Get", "ingredient_id", id)
	defer span.End()

	var ing models.Ingredient
	if err := s.store.FindByID(ctx, models.CollectionIngredients, id, &ing); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("Ingredient not found")
		}
		return nil, util.RecordError(span, storeError("failed to get ingredient", err))
	}
	return &ing, nil
}

// List returns every ingredient, newest first
func (s *InventoryService) List(ctx context.Context) ([]models.Ingredient, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.List")
	defer span.End()

	ingredients := []models.Ingredient{}
	if err := s.store.Find(ctx, models.CollectionIngredients, nil, store.FindOptions{NewestFirst: true}, &ingredients); err != nil {
		return nil, util.RecordError(span, storeError("failed to list ingredients", err))
	}
	return ingredients, nil
}

// Create registers a new ingredient with its opening stock
func (s *InventoryService) Create(ctx context.Context, in IngredientInput) (*models.Ingredient, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Create")
	defer span.End()

	name := strings.TrimSpace(in.Name)
	if name == "" || in.StockQuantity == nil {
		util.ValidationFailuresTotal.WithLabelValues("ingredient").Inc()
		return nil, validationError("Missing required fields")
	}
	if *in.StockQuantity < 0 {
		util.ValidationFailuresTotal.WithLabelValues("ingredient").Inc()
		return nil, validationError("Invalid stock quantity. Must be zero or more")
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = defaultUnit
	}

	unlock, err := lockAll(ctx, s.locker, ingredientKey(name))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.checkNameFree(ctx, name, ""); err != nil {
		return nil, util.RecordError(span, err)
	}

	id, err := s.seq.Next(ctx, models.PrefixIngredient, models.CounterIngredient)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	now := time.Now().UTC()
	ing := &models.Ingredient{
		ID:            id,
		Name:          name,
		StockQuantity: *in.StockQuantity,
		Unit:          unit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Insert(ctx, models.CollectionIngredients, id, ing); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, duplicateError("Ingredient already exists")
		}
		return nil, util.RecordError(span, storeError("failed to create ingredient", err))
	}

	s.logger.Info("Ingredient created", zap.String("ingredient_id", id), zap.String("name", name))
	return ing, nil
}

// ingredientKey locks an ingredient name. Names are unique case-sensitively.
func ingredientKey(name string) string {
	return "ingredient-key:" + name
}

// checkNameFree fails with a duplicate error when another ingredient than
// selfID already uses name
func (s *InventoryService) checkNameFree(ctx context.Context, name, selfID string) error {
	var existing []models.Ingredient
	if err := s.store.Find(ctx, models.CollectionIngredients, store.Filter{"name": name}, store.FindOptions{}, &existing); err != nil {
		return storeError("failed to check ingredient", err)
	}
	for _, ing := range existing {
		if ing.ID != selfID {
			return duplicateError("Ingredient already exists")
		}
	}
	return nil
}

// Update changes name or unit field by field and moves stock to the requested
// level. Stock is never rewritten by the rename; its change is applied as a delta.
func (s *InventoryService) Update(ctx context.Context, id string, in IngredientUpdate) (*models.Ingredient, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Update", "ingredient_id", id)
	defer span.End()

	if in.StockQuantity != nil && *in.StockQuantity < 0 {
		util.ValidationFailuresTotal.WithLabelValues("ingredient").Inc()
		return nil, validationError("Invalid stock quantity. Must be zero or more")
	}

	unlock, err := lockAll(ctx, s.locker, "ingredient:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := store.Fields{}
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != "" && name != ing.Name {
			unlockName, err := lockAll(ctx, s.locker, ingredientKey(name))
			if err != nil {
				return nil, err
			}
			defer unlockName()

			if err := s.checkNameFree(ctx, name, id); err != nil {
				return nil, util.RecordError(span, err)
			}
			fields["name"] = name
		}
	}
	if in.Unit != nil {
		if unit := strings.TrimSpace(*in.Unit); unit != "" && unit != ing.Unit {
			fields["unit"] = unit
		}
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		var updated models.Ingredient
		if err := s.store.Set(ctx, models.CollectionIngredients, id, fields, &updated); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return nil, duplicateError("Ingredient already exists")
			}
			return nil, util.RecordError(span, storeError("failed to update ingredient", err))
		}
		ing = &updated
	}

	if in.StockQuantity != nil && *in.StockQuantity != ing.StockQuantity {
		return s.AdjustStock(ctx, id, *in.StockQuantity-ing.StockQuantity)
	}
	return ing, nil
}

// VerifyExist fails with a validation error naming the first id that is not an ingredient
func (s *InventoryService) VerifyExist(ctx context.Context, ids []string) error {
	for _, id := range ids {
		var ing models.Ingredient
		err := s.store.FindByID(ctx, models.CollectionIngredients, id, &ing)
		if errors.Is(err, store.ErrNotFound) {
			return &Error{Kind: KindValidation, Message: "Ingredient with ID " + id + " not found", Err: err}
		}
		if err != nil {
			return storeError("failed to verify ingredient", err)
		}
	}
	return nil
}

// AdjustStock atomically adds delta to the stock of one ingredient.
// Stock below zero is logged and announced rather than rejected unless the
// floor is enforced, in which case the deduction fails with InsufficientStock.
func (s *InventoryService) AdjustStock(ctx context.Context, id string, delta float64) (*models.Ingredient, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AdjustStock", "ingredient_id", id)
	defer span.End()

	d := store.Delta{Field: stockField, Amount: delta}
	if s.cfg.EnforceFloor && delta < 0 {
		floor := 0.0
		d.Floor = &floor
	}

	var ing models.Ingredient
	if err := s.store.Increment(ctx, models.CollectionIngredients, id, d, &ing); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, notFoundError("Ingredient with ID %s not found", id)
		case errors.Is(err, store.ErrConditionFailed):
			util.InsufficientStockTotal.Inc()
			return nil, &Error{Kind: KindInsufficientStock, Message: "Insufficient stock for ingredient " + id, Err: err}
		}
		return nil, util.RecordError(span, storeError("failed to adjust stock", err))
	}

	direction := "restore"
	if delta < 0 {
		direction = "deduct"
	}
	util.StockAdjustmentsTotal.WithLabelValues(direction).Inc()

	s.publishStock(ctx, models.EventTypeStockAdjusted, &ing, delta)

	if ing.StockQuantity < 0 {
		util.NegativeStockTotal.Inc()
		s.logger.Warn("Ingredient stock is negative",
			zap.String("ingredient_id", id),
			zap.Float64("stock_quantity", ing.StockQuantity),
			zap.Float64("delta", delta))
	}
	if delta < 0 && ing.StockQuantity < s.cfg.LowStockThreshold {
		s.publishStock(ctx, models.EventTypeStockLow, &ing, delta)
	}

	return &ing, nil
}

func (s *InventoryService) publishStock(ctx context.Context, eventType string, ing *models.Ingredient, delta float64) {
	event := &models.StockEvent{
		BaseEvent:     newBaseEvent(eventType),
		IngredientID:  ing.ID,
		Name:          ing.Name,
		Delta:         delta,
		StockQuantity: ing.StockQuantity,
		Unit:          ing.Unit,
	}
	if err := s.publisher.PublishStockEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish stock event",
			zap.String("type", eventType),
			zap.String("ingredient_id", ing.ID),
			zap.Error(err))
	}
}
