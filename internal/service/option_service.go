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

// OptionService manages the option catalog and keeps inventory in step with it
type OptionService struct {
	store     store.DocumentStore
	seq       *SequenceGenerator
	inventory *InventoryService
	locker    Locker
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOptionService creates a new option service
func NewOptionService(s store.DocumentStore, seq *SequenceGenerator, inventory *InventoryService, locker Locker, publisher EventPublisher) *OptionService {
	return &OptionService{
		store:     s,
		seq:       seq,
		inventory: inventory,
		locker:    locker,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// OptionInput is the payload for creating an option
type OptionInput struct {
	Name           string                 `json:"name"`
	Flavor         string                 `json:"flavor"`
	Size           string                 `json:"size"`
	Shape          string                 `json:"shape"`
	Price          *float64               `json:"price"`
	Specifications string                 `json:"specifications"`
	Ingredients    []models.IngredientUse `json:"ingredients"`
}

// OptionUpdate is a partial option update; nil fields are left unchanged
type OptionUpdate struct {
	Name           *string                `json:"name"`
	Flavor         *string                `json:"flavor"`
	Size           *string                `json:"size"`
	Shape          *string                `json:"shape"`
	Price          *float64               `json:"price"`
	Specifications *string                `json:"specifications"`
	Ingredients    []models.IngredientUse `json:"ingredients"`
}

func optionIdentityKey(o *models.Option) string {
	return "option-key:" + strings.Join([]string{string(o.Name), o.Flavor, o.Size, o.Shape}, "|")
}

func optionIdentityFilter(o *models.Option) store.Filter {
	return store.Filter{"name": o.Name, "flavor": o.Flavor, "size": o.Size, "shape": o.Shape}
}

func rejectOption(err error) error {
	util.ValidationFailuresTotal.WithLabelValues("option").Inc()
	return err
}

// Create validates the option, stores it and deducts its ingredients from stock
func (s *OptionService) Create(ctx context.Context, in OptionInput) (*models.Option, error) {
	ctx, span := util.StartSpan(ctx, "OptionService.Create")
	defer span.End()

	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Flavor) == "" ||
		strings.TrimSpace(in.Size) == "" || strings.TrimSpace(in.Shape) == "" || in.Price == nil {
		return nil, rejectOption(validationError("Missing required fields"))
	}
	kind, ok := normalizeKind(in.Name)
	if !ok {
		return nil, rejectOption(validationError("Invalid option name. Must be one of: cake base, filling, frosting, decorations"))
	}
	size, ok := normalizeSize(in.Size)
	if !ok {
		return nil, rejectOption(validationError("Invalid option size. Must be one of: 6, 8, 10, 12"))
	}
	shape, ok := normalizeShape(in.Shape)
	if !ok {
		return nil, rejectOption(validationError("Invalid option shape. Must be one of: round, square, heart"))
	}
	if *in.Price < 0 {
		return nil, rejectOption(validationError("Invalid price. Must be a positive number"))
	}
	uses, err := normalizeUses(in.Ingredients)
	if err != nil {
		return nil, rejectOption(err)
	}
	if err := s.inventory.VerifyExist(ctx, useIDs(uses)); err != nil {
		return nil, rejectOption(err)
	}

	opt := &models.Option{
		Name:           kind,
		Flavor:         strings.ToLower(strings.TrimSpace(in.Flavor)),
		Size:           size,
		Shape:          shape,
		Price:          *in.Price,
		Specifications: in.Specifications,
		Ingredients:    uses,
	}

	unlock, err := lockAll(ctx, s.locker, optionIdentityKey(opt))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var existing models.Option
	err = s.store.FindOne(ctx, models.CollectionOptions, optionIdentityFilter(opt), &existing)
	if err == nil {
		return nil, duplicateError("Option already exists")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, util.RecordError(span, storeError("failed to check option", err))
	}

	opt.ID, err = s.seq.Next(ctx, models.PrefixOption, models.CounterOption)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	now := time.Now().UTC()
	opt.CreatedAt, opt.UpdatedAt = now, now

	if err := s.store.Insert(ctx, models.CollectionOptions, opt.ID, opt); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, duplicateError("Option already exists")
		}
		return nil, util.RecordError(span, storeError("failed to create option", err))
	}

	ledger := newStockLedger(s.inventory)
	if err := ledger.deduct(ctx, opt.Ingredients); err != nil {
		ledger.compensate(ctx, "option create")
		s.removeOrphan(ctx, opt.ID)
		return nil, util.RecordError(span, err)
	}

	util.OptionsMutatedTotal.WithLabelValues("create").Inc()
	s.logger.Info("Option created",
		zap.String("option_id", opt.ID),
		zap.String("kind", string(opt.Name)),
		zap.String("flavor", opt.Flavor))
	s.publish(ctx, models.EventTypeOptionCreated, opt)

	return opt, nil
}

// Update merges the given fields into an option. When ingredients change the
// old quantities are restored before the new ones are deducted.
func (s *OptionService) Update(ctx context.Context, id string, in OptionUpdate) (*models.Option, error) {
	ctx, span := util.StartSpan(ctx, "OptionService.Update", "option_id", id)
	defer span.End()

	unlock, err := lockAll(ctx, s.locker, "option:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var current models.Option
	if err := s.store.FindByID(ctx, models.CollectionOptions, id, &current); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("Option not found")
		}
		return nil, util.RecordError(span, storeError("failed to get option", err))
	}

	merged := current
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		kind, ok := normalizeKind(*in.Name)
		if !ok {
			return nil, rejectOption(validationError("Invalid option name. Must be one of: cake base, filling, frosting, decorations"))
		}
		merged.Name = kind
	}
	if in.Flavor != nil && strings.TrimSpace(*in.Flavor) != "" {
		merged.Flavor = strings.ToLower(strings.TrimSpace(*in.Flavor))
	}
	if in.Size != nil && strings.TrimSpace(*in.Size) != "" {
		size, ok := normalizeSize(*in.Size)
		if !ok {
			return nil, rejectOption(validationError("Invalid option size. Must be one of: 6, 8, 10, 12"))
		}
		merged.Size = size
	}
	if in.Shape != nil && strings.TrimSpace(*in.Shape) != "" {
		shape, ok := normalizeShape(*in.Shape)
		if !ok {
			return nil, rejectOption(validationError("Invalid option shape. Must be one of: round, square, heart"))
		}
		merged.Shape = shape
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, rejectOption(validationError("Invalid price. Must be a positive number"))
		}
		merged.Price = *in.Price
	}
	if in.Specifications != nil {
		merged.Specifications = *in.Specifications
	}
	if in.Ingredients != nil {
		uses, err := normalizeUses(in.Ingredients)
		if err != nil {
			return nil, rejectOption(err)
		}
		if err := s.inventory.VerifyExist(ctx, useIDs(uses)); err != nil {
			return nil, rejectOption(err)
		}
		merged.Ingredients = uses
	}

	if optionIdentityKey(&merged) != optionIdentityKey(&current) {
		unlockKey, err := lockAll(ctx, s.locker, optionIdentityKey(&merged))
		if err != nil {
			return nil, err
		}
		defer unlockKey()

		var siblings []models.Option
		if err := s.store.Find(ctx, models.CollectionOptions, optionIdentityFilter(&merged), store.FindOptions{}, &siblings); err != nil {
			return nil, util.RecordError(span, storeError("failed to check option", err))
		}
		for _, sibling := range siblings {
			if sibling.ID != id {
				return nil, duplicateError("Option with these specifications already exists")
			}
		}
	}

	ledger := newStockLedger(s.inventory)
	if in.Ingredients != nil {
		if err := ledger.restore(ctx, current.Ingredients); err != nil {
			ledger.compensate(ctx, "option update restore")
			return nil, util.RecordError(span, err)
		}
		if err := ledger.deduct(ctx, merged.Ingredients); err != nil {
			ledger.compensate(ctx, "option update deduct")
			return nil, util.RecordError(span, err)
		}
	}

	merged.UpdatedAt = time.Now().UTC()
	if err := s.store.Replace(ctx, models.CollectionOptions, id, &merged); err != nil {
		ledger.compensate(ctx, "option update persist")
		if errors.Is(err, store.ErrDuplicate) {
			return nil, duplicateError("Option with these specifications already exists")
		}
		return nil, util.RecordError(span, storeError("failed to update option", err))
	}

	util.OptionsMutatedTotal.WithLabelValues("update").Inc()
	s.logger.Info("Option updated", zap.String("option_id", id))
	s.publish(ctx, models.EventTypeOptionUpdated, &merged)

	return &merged, nil
}

// Delete restores the option's ingredients to stock and removes it
func (s *OptionService) Delete(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "OptionService.Delete", "option_id", id)
	defer span.End()

	unlock, err := lockAll(ctx, s.locker, "option:"+id)
	if err != nil {
		return err
	}
	defer unlock()

	var opt models.Option
	if err := s.store.FindByID(ctx, models.CollectionOptions, id, &opt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("Option not found")
		}
		return util.RecordError(span, storeError("failed to get option", err))
	}

	ledger := newStockLedger(s.inventory)
	if err := ledger.restore(ctx, opt.Ingredients); err != nil {
		ledger.compensate(ctx, "option delete restore")
		return util.RecordError(span, err)
	}

	if err := s.store.Delete(ctx, models.CollectionOptions, id); err != nil {
		ledger.compensate(ctx, "option delete persist")
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("Option not found")
		}
		return util.RecordError(span, storeError("failed to delete option", err))
	}

	util.OptionsMutatedTotal.WithLabelValues("delete").Inc()
	s.logger.Info("Option deleted", zap.String("option_id", id))
	s.publish(ctx, models.EventTypeOptionDeleted, &opt)

	return nil
}

// List returns every option, newest first
func (s *OptionService) List(ctx context.Context) ([]models.Option, error) {
	ctx, span := util.StartSpan(ctx, "OptionService.List")
	defer span.End()

	opts := []models.Option{}
	if err := s.store.Find(ctx, models.CollectionOptions, nil, store.FindOptions{NewestFirst: true}, &opts); err != nil {
		return nil, util.RecordError(span, storeError("failed to list options", err))
	}
	return opts, nil
}

func (s *OptionService) removeOrphan(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, models.CollectionOptions, id); err != nil {
		s.logger.Error("Failed to remove option after stock failure", zap.String("option_id", id), zap.Error(err))
	}
}

func (s *OptionService) publish(ctx context.Context, eventType string, opt *models.Option) {
	if err := s.publisher.PublishOptionEvent(ctx, optionEvent(eventType, opt)); err != nil {
		s.logger.Error("Failed to publish option event",
			zap.String("type", eventType),
			zap.String("option_id", opt.ID),
			zap.Error(err))
	}
}
