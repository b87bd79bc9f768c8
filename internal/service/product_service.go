package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/store"
	"github.com/dewmini3/CakeCustomizing/internal/util"

	"go.uber.org/zap"
)

// ProductConfig tunes product behaviour
type ProductConfig struct {
	// ReconcileInventory makes ingredient edits restore old quantities and
	// deduct new ones, the way option updates do
	ReconcileInventory bool
}

// ProductService manages catalog products and their archive
type ProductService struct {
	store     store.DocumentStore
	seq       *SequenceGenerator
	inventory *InventoryService
	locker    Locker
	publisher EventPublisher
	cfg       ProductConfig
	logger    *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(s store.DocumentStore, seq *SequenceGenerator, inventory *InventoryService, locker Locker, publisher EventPublisher, cfg ProductConfig) *ProductService {
	return &ProductService{
		store:     s,
		seq:       seq,
		inventory: inventory,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		logger:    util.GetLogger(),
	}
}

// ProductInput is the payload for creating a product
type ProductInput struct {
	Name        string                 `json:"name"`
	Weight      string                 `json:"weight"`
	Description string                 `json:"description"`
	Price       *float64               `json:"price"`
	Category    models.ProductCategory `json:"category"`
	Image       string                 `json:"image"`
	Ingredients []models.IngredientUse `json:"ingredients"`
}

// ProductUpdate is a partial product update; nil fields are left unchanged
type ProductUpdate struct {
	Name        *string                 `json:"name"`
	Weight      *string                 `json:"weight"`
	Description *string                 `json:"description"`
	Price       *float64                `json:"price"`
	Category    *models.ProductCategory `json:"category"`
	Image       *string                 `json:"image"`
	Ingredients []models.IngredientUse  `json:"ingredients"`
}

func rejectProduct(err error) error {
	util.ValidationFailuresTotal.WithLabelValues("product").Inc()
	return err
}

// Create stores a product and deducts its ingredients from stock
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Create")
	defer span.End()

	name := strings.TrimSpace(in.Name)
	if name == "" || in.Price == nil {
		return nil, rejectProduct(validationError("Missing required fields"))
	}
	if *in.Price < 0 {
		return nil, rejectProduct(validationError("Invalid price. Must be a positive number"))
	}
	uses, err := normalizeUses(in.Ingredients)
	if err != nil {
		return nil, rejectProduct(err)
	}
	if err := s.inventory.VerifyExist(ctx, useIDs(uses)); err != nil {
		return nil, rejectProduct(err)
	}

	id, err := s.seq.Next(ctx, models.PrefixProduct, models.CounterProduct)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	now := time.Now().UTC()
	p := &models.Product{
		ID:          id,
		Name:        name,
		Weight:      strings.TrimSpace(in.Weight),
		Description: in.Description,
		Price:       *in.Price,
		Category:    normalizeCategory(in.Category),
		Image:       in.Image,
		Ingredients: uses,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Insert(ctx, models.CollectionProducts, id, p); err != nil {
		return nil, util.RecordError(span, storeError("failed to create product", err))
	}

	ledger := newStockLedger(s.inventory)
	if err := ledger.deduct(ctx, p.Ingredients); err != nil {
		ledger.compensate(ctx, "product create")
		s.removeOrphan(ctx, id)
		return nil, util.RecordError(span, err)
	}

	s.logger.Info("Product created", zap.String("product_id", id), zap.String("name", name))
	s.publish(ctx, models.EventTypeProductCreated, p)
	return p, nil
}

// Get returns one active product
func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Get", "product_id", id)
	defer span.End()

	var p models.Product
	if err := s.store.FindByID(ctx, models.CollectionProducts, id, &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("Product not found")
		}
		return nil, util.RecordError(span, storeError("failed to get product", err))
	}
	return &p, nil
}

// List returns every active product, newest first
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.List")
	defer span.End()

	products := []models.Product{}
	if err := s.store.Find(ctx, models.CollectionProducts, nil, store.FindOptions{NewestFirst: true}, &products); err != nil {
		return nil, util.RecordError(span, storeError("failed to list products", err))
	}
	return products, nil
}

// Search matches q case-insensitively against id, name and category tags.
// A numeric q also matches products with exactly that price.
func (s *ProductService) Search(ctx context.Context, q string) ([]models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, validationError("Query parameter 'q' is required")
	}

	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(q)
	price, priceErr := strconv.ParseFloat(q, 64)

	matches := []models.Product{}
	for _, p := range products {
		if matchesProduct(&p, needle) || (priceErr == nil && p.Price == price) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

func matchesProduct(p *models.Product, needle string) bool {
	if strings.Contains(strings.ToLower(p.ID), needle) || strings.Contains(strings.ToLower(p.Name), needle) {
		return true
	}
	for _, tags := range [][]string{p.Category.Flavor, p.Category.Occasion, p.Category.Specifications} {
		for _, tag := range tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
	}
	return false
}

// Update merges the given fields into a product. Ingredient edits only touch
// stock when reconciliation is enabled.
func (s *ProductService) Update(ctx context.Context, id string, in ProductUpdate) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Update", "product_id", id)
	defer span.End()

	unlock, err := lockAll(ctx, s.locker, "product:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *current
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		merged.Name = strings.TrimSpace(*in.Name)
	}
	if in.Weight != nil {
		merged.Weight = strings.TrimSpace(*in.Weight)
	}
	if in.Description != nil {
		merged.Description = *in.Description
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, rejectProduct(validationError("Invalid price. Must be a positive number"))
		}
		merged.Price = *in.Price
	}
	if in.Category != nil {
		merged.Category = normalizeCategory(*in.Category)
	}
	if in.Image != nil && *in.Image != "" {
		merged.Image = *in.Image
	}

	ledger := newStockLedger(s.inventory)
	if in.Ingredients != nil {
		uses, err := normalizeUses(in.Ingredients)
		if err != nil {
			return nil, rejectProduct(err)
		}
		if err := s.inventory.VerifyExist(ctx, useIDs(uses)); err != nil {
			return nil, rejectProduct(err)
		}
		merged.Ingredients = uses

		if s.cfg.ReconcileInventory {
			if err := ledger.restore(ctx, current.Ingredients); err != nil {
				ledger.compensate(ctx, "product update restore")
				return nil, util.RecordError(span, err)
			}
			if err := ledger.deduct(ctx, merged.Ingredients); err != nil {
				ledger.compensate(ctx, "product update deduct")
				return nil, util.RecordError(span, err)
			}
		}
	}

	merged.UpdatedAt = time.Now().UTC()
	if err := s.store.Replace(ctx, models.CollectionProducts, id, &merged); err != nil {
		ledger.compensate(ctx, "product update persist")
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("Product not found")
		}
		return nil, util.RecordError(span, storeError("failed to update product", err))
	}

	s.logger.Info("Product updated", zap.String("product_id", id))
	return &merged, nil
}

// Discontinue moves a product into the archive. The archive copy is an upsert
// so a retry after a failed delete converges.
func (s *ProductService) Discontinue(ctx context.Context, id string) (*models.DiscontinuedProduct, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Discontinue", "product_id", id)
	defer span.End()

	start := time.Now()
	defer func() {
		util.StoreOperationLatency.WithLabelValues("discontinue").Observe(time.Since(start).Seconds())
	}()

	unlock, err := lockAll(ctx, s.locker, "product:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	archived := &models.DiscontinuedProduct{Product: *p, DeletedAt: time.Now().UTC()}
	if err := s.store.Upsert(ctx, models.CollectionDiscontinuedProducts, id, archived); err != nil {
		return nil, util.RecordError(span, storeError("failed to archive product", err))
	}
	if err := s.store.Delete(ctx, models.CollectionProducts, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, util.RecordError(span, storeError("failed to remove archived product", err))
	}

	util.ArchiveMigrationsTotal.WithLabelValues("discontinue").Inc()
	s.logger.Info("Product discontinued", zap.String("product_id", id))
	s.publish(ctx, models.EventTypeProductDiscontinued, p)
	return archived, nil
}

// Restore moves an archived product back into the catalog with the same id
func (s *ProductService) Restore(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Restore", "product_id", id)
	defer span.End()

	start := time.Now()
	defer func() {
		util.StoreOperationLatency.WithLabelValues("restore").Observe(time.Since(start).Seconds())
	}()

	unlock, err := lockAll(ctx, s.locker, "product:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	archived, err := s.GetDiscontinued(ctx, id)
	if err != nil {
		return nil, err
	}

	p := archived.Product
	if err := s.store.Upsert(ctx, models.CollectionProducts, id, &p); err != nil {
		return nil, util.RecordError(span, storeError("failed to restore product", err))
	}
	if err := s.store.Delete(ctx, models.CollectionDiscontinuedProducts, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, util.RecordError(span, storeError("failed to remove restored product from archive", err))
	}

	util.ArchiveMigrationsTotal.WithLabelValues("restore").Inc()
	s.logger.Info("Product restored", zap.String("product_id", id))
	s.publish(ctx, models.EventTypeProductRestored, &p)
	return &p, nil
}

// ListDiscontinued returns every archived product, newest first
func (s *ProductService) ListDiscontinued(ctx context.Context) ([]models.DiscontinuedProduct, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.ListDiscontinued")
	defer span.End()

	products := []models.DiscontinuedProduct{}
	if err := s.store.Find(ctx, models.CollectionDiscontinuedProducts, nil, store.FindOptions{NewestFirst: true}, &products); err != nil {
		return nil, util.RecordError(span, storeError("failed to list discontinued products", err))
	}
	return products, nil
}

// GetDiscontinued returns one archived product
func (s *ProductService) GetDiscontinued(ctx context.Context, id string) (*models.DiscontinuedProduct, error) {
	var p models.DiscontinuedProduct
	if err := s.store.FindByID(ctx, models.CollectionDiscontinuedProducts, id, &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("Product not found in archive")
		}
		return nil, storeError("failed to get discontinued product", err)
	}
	return &p, nil
}

// DeleteDiscontinued permanently removes an archived product
func (s *ProductService) DeleteDiscontinued(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "ProductService.DeleteDiscontinued", "product_id", id)
	defer span.End()

	if err := s.store.Delete(ctx, models.CollectionDiscontinuedProducts, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("Product not found in archive")
		}
		return util.RecordError(span, storeError("failed to delete discontinued product", err))
	}
	s.logger.Info("Discontinued product deleted", zap.String("product_id", id))
	return nil
}

func (s *ProductService) removeOrphan(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, models.CollectionProducts, id); err != nil {
		s.logger.Error("Failed to remove product after stock failure", zap.String("product_id", id), zap.Error(err))
	}
}

func (s *ProductService) publish(ctx context.Context, eventType string, p *models.Product) {
	if err := s.publisher.PublishProductEvent(ctx, productEvent(eventType, p)); err != nil {
		s.logger.Error("Failed to publish product event",
			zap.String("type", eventType),
			zap.String("product_id", p.ID),
			zap.Error(err))
	}
}

func normalizeCategory(c models.ProductCategory) models.ProductCategory {
	clean := func(tags []string) []string {
		out := []string{}
		for _, tag := range tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				out = append(out, tag)
			}
		}
		return out
	}
	return models.ProductCategory{
		Flavor:         clean(c.Flavor),
		Occasion:       clean(c.Occasion),
		Specifications: clean(c.Specifications),
	}
}
