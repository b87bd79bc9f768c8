package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/store"
	"github.com/dewmini3/CakeCustomizing/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CustomizeService composes custom cakes from catalog options
type CustomizeService struct {
	store     store.DocumentStore
	seq       *SequenceGenerator
	locker    Locker
	publisher EventPublisher
	logger    *zap.Logger
}

// NewCustomizeService creates a new customize service
func NewCustomizeService(s store.DocumentStore, seq *SequenceGenerator, locker Locker, publisher EventPublisher) *CustomizeService {
	return &CustomizeService{
		store:     s,
		seq:       seq,
		locker:    locker,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CustomizeInput names the options that make up a custom cake
type CustomizeInput struct {
	Layers         int      `json:"layers"`
	Size           string   `json:"size"`
	Shape          string   `json:"shape"`
	Bases          []string `json:"bases"`
	Filling        string   `json:"filling"`
	Frosting       string   `json:"frosting"`
	Decorations    []string `json:"decorations"`
	Specifications string   `json:"specifications"`
}

func rejectCustomize(err error) error {
	util.ValidationFailuresTotal.WithLabelValues("customize").Inc()
	return err
}

// Create validates the composition, prices it and stores it.
// Stock is not touched; each option already reserved its own ingredients.
func (s *CustomizeService) Create(ctx context.Context, in CustomizeInput) (*models.Customize, error) {
	ctx, span := util.StartSpan(ctx, "CustomizeService.Create")
	defer span.End()

	size, ok := normalizeSize(in.Size)
	if !ok {
		return nil, rejectCustomize(validationError("Invalid size. Must be one of: 6, 8, 10, 12"))
	}
	shape, ok := normalizeShape(in.Shape)
	if !ok {
		return nil, rejectCustomize(validationError("Invalid shape. Must be one of: round, square, heart"))
	}
	if in.Layers < 1 {
		return nil, rejectCustomize(validationError("Invalid layers. Must be at least 1"))
	}
	if len(in.Bases) != in.Layers {
		return nil, rejectCustomize(validationError("Number of cake bases must equal number of layers"))
	}
	if strings.TrimSpace(in.Filling) == "" || strings.TrimSpace(in.Frosting) == "" {
		return nil, rejectCustomize(validationError("Missing required fields"))
	}
	if len(in.Decorations) == 0 {
		return nil, rejectCustomize(validationError("At least one decoration is required"))
	}

	resolver := &optionResolver{store: s.store, size: size, shape: shape, cache: make(map[string]*models.Option)}

	bases := make([]*models.Option, 0, len(in.Bases))
	for _, id := range in.Bases {
		opt, err := resolver.resolve(ctx, id, models.OptionKindBase)
		if err != nil {
			return nil, rejectCustomize(err)
		}
		bases = append(bases, opt)
	}
	filling, err := resolver.resolve(ctx, in.Filling, models.OptionKindFilling)
	if err != nil {
		return nil, rejectCustomize(err)
	}
	frosting, err := resolver.resolve(ctx, in.Frosting, models.OptionKindFrosting)
	if err != nil {
		return nil, rejectCustomize(err)
	}
	decorations := make([]*models.Option, 0, len(in.Decorations))
	for _, id := range in.Decorations {
		opt, err := resolver.resolve(ctx, id, models.OptionKindDecoration)
		if err != nil {
			return nil, rejectCustomize(err)
		}
		decorations = append(decorations, opt)
	}

	all := make([]*models.Option, 0, len(bases)+len(decorations)+2)
	all = append(all, bases...)
	all = append(all, filling, frosting)
	all = append(all, decorations...)

	c := &models.Customize{
		Layers:         in.Layers,
		Size:           size,
		Shape:          shape,
		Bases:          refs(bases),
		Filling:        ref(filling),
		Frosting:       ref(frosting),
		Decorations:    refs(decorations),
		Price:          totalPrice(all),
		Specifications: in.Specifications,
		Ingredients:    aggregateIngredients(all),
		Signature:      customizeSignature(size, shape, bases, filling, frosting, decorations),
	}

	unlock, err := lockAll(ctx, s.locker, "customize-key:"+c.Signature)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var existing models.Customize
	err = s.store.FindOne(ctx, models.CollectionCustomizes, store.Filter{"signature": c.Signature}, &existing)
	if err == nil {
		return nil, duplicateError("Customize already exists")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, util.RecordError(span, storeError("failed to check customize", err))
	}

	c.ID, err = s.seq.Next(ctx, models.PrefixCustomize, models.CounterCustomize)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	c.CreatedAt = time.Now().UTC()

	if err := s.store.Insert(ctx, models.CollectionCustomizes, c.ID, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, duplicateError("Customize already exists")
		}
		return nil, util.RecordError(span, storeError("failed to create customize", err))
	}

	util.CustomizesCreatedTotal.Inc()
	s.logger.Info("Customize created",
		zap.String("customize_id", c.ID),
		zap.Int("layers", c.Layers),
		zap.Float64("price", c.Price))

	event := &models.CustomizeCreatedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeCustomizeCreated),
		CustomizeID: c.ID,
		Size:        c.Size,
		Shape:       c.Shape,
		Layers:      c.Layers,
		Price:       c.Price,
	}
	if err := s.publisher.PublishCustomizeCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish CustomizeCreated event", zap.Error(err))
	}

	return c, nil
}

// List returns every customize, newest first
func (s *CustomizeService) List(ctx context.Context) ([]models.Customize, error) {
	ctx, span := util.StartSpan(ctx, "CustomizeService.List")
	defer span.End()

	out := []models.Customize{}
	if err := s.store.Find(ctx, models.CollectionCustomizes, nil, store.FindOptions{NewestFirst: true}, &out); err != nil {
		return nil, util.RecordError(span, storeError("failed to list customizes", err))
	}
	return out, nil
}

// AvailableOptions partitions the options made for size and shape by kind
func (s *CustomizeService) AvailableOptions(ctx context.Context, size, shape string) (*models.AvailableOptions, error) {
	ctx, span := util.StartSpan(ctx, "CustomizeService.AvailableOptions", "size", size, "shape", shape)
	defer span.End()

	size, ok := normalizeSize(size)
	if !ok {
		return nil, validationError("Invalid size. Must be one of: 6, 8, 10, 12")
	}
	shape, ok = normalizeShape(shape)
	if !ok {
		return nil, validationError("Invalid shape. Must be one of: round, square, heart")
	}

	var opts []models.Option
	if err := s.store.Find(ctx, models.CollectionOptions, store.Filter{"size": size, "shape": shape}, store.FindOptions{NewestFirst: true}, &opts); err != nil {
		return nil, util.RecordError(span, storeError("failed to list options", err))
	}

	available := &models.AvailableOptions{
		Bases:       []models.Option{},
		Fillings:    []models.Option{},
		Frostings:   []models.Option{},
		Decorations: []models.Option{},
	}
	for _, opt := range opts {
		switch opt.Name {
		case models.OptionKindBase:
			available.Bases = append(available.Bases, opt)
		case models.OptionKindFilling:
			available.Fillings = append(available.Fillings, opt)
		case models.OptionKindFrosting:
			available.Frostings = append(available.Frostings, opt)
		case models.OptionKindDecoration:
			available.Decorations = append(available.Decorations, opt)
		}
	}
	return available, nil
}

// optionResolver loads each referenced option once and checks it fits the cake
type optionResolver struct {
	store store.DocumentStore
	size  string
	shape string
	cache map[string]*models.Option
}

func (r *optionResolver) resolve(ctx context.Context, id string, kind models.OptionKind) (*models.Option, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, validationError("Missing %s option", kind)
	}

	opt, ok := r.cache[id]
	if !ok {
		var loaded models.Option
		if err := r.store.FindByID(ctx, models.CollectionOptions, id, &loaded); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &Error{Kind: KindValidation, Message: "Option with ID " + id + " not found", Err: err}
			}
			return nil, storeError("failed to get option", err)
		}
		opt = &loaded
		r.cache[id] = opt
	}

	if opt.Name != kind {
		return nil, validationError("Option %s is not a %s option", id, kind)
	}
	if opt.Size != r.size || opt.Shape != r.shape {
		return nil, validationError("Option %s does not match size %s and shape %s", id, r.size, r.shape)
	}
	return opt, nil
}

func ref(o *models.Option) models.OptionRef {
	return models.OptionRef{ID: o.ID, Flavor: o.Flavor, Price: o.Price, Ingredients: o.Ingredients}
}

func refs(opts []*models.Option) []models.OptionRef {
	out := make([]models.OptionRef, len(opts))
	for i, o := range opts {
		out[i] = ref(o)
	}
	return out
}

func totalPrice(opts []*models.Option) float64 {
	total := decimal.Zero
	for _, o := range opts {
		total = total.Add(decimal.NewFromFloat(o.Price))
	}
	return total.InexactFloat64()
}

func aggregateIngredients(opts []*models.Option) []models.IngredientUse {
	lists := make([][]models.IngredientUse, len(opts))
	for i, o := range opts {
		lists[i] = o.Ingredients
	}
	return mergeUses(lists...)
}

// customizeSignature identifies a composition structurally. Base and
// decoration order is significant.
func customizeSignature(size, shape string, bases []*models.Option, filling, frosting *models.Option, decorations []*models.Option) string {
	ids := func(opts []*models.Option) string {
		parts := make([]string, len(opts))
		for i, o := range opts {
			parts[i] = o.ID
		}
		return strings.Join(parts, ",")
	}
	canonical := strings.Join([]string{size, shape, ids(bases), filling.ID, frosting.ID, ids(decorations)}, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
