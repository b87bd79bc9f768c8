package service

import (
	"context"
	"sync"
	"testing"

	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/store"

	"github.com/stretchr/testify/require"
)

// fakePublisher records every published event
type fakePublisher struct {
	mu        sync.Mutex
	options   []*models.OptionEvent
	stock     []*models.StockEvent
	customize []*models.CustomizeCreatedEvent
	products  []*models.ProductEvent
	orders    []*models.OrderEvent
	feedback  []*models.FeedbackSubmittedEvent
}

func (p *fakePublisher) PublishOptionEvent(_ context.Context, e *models.OptionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.options = append(p.options, e)
	return nil
}

func (p *fakePublisher) PublishStockEvent(_ context.Context, e *models.StockEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stock = append(p.stock, e)
	return nil
}

func (p *fakePublisher) PublishCustomizeCreated(_ context.Context, e *models.CustomizeCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customize = append(p.customize, e)
	return nil
}

func (p *fakePublisher) PublishProductEvent(_ context.Context, e *models.ProductEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.products = append(p.products, e)
	return nil
}

func (p *fakePublisher) PublishOrderEvent(_ context.Context, e *models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, e)
	return nil
}

func (p *fakePublisher) PublishFeedbackSubmitted(_ context.Context, e *models.FeedbackSubmittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedback = append(p.feedback, e)
	return nil
}

func (p *fakePublisher) stockEvents(eventType string) []*models.StockEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*models.StockEvent
	for _, e := range p.stock {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	store      *store.MemoryStore
	publisher  *fakePublisher
	seq        *SequenceGenerator
	inventory  *InventoryService
	options    *OptionService
	customizes *CustomizeService
	products   *ProductService
	orders     *OrderService
	feedback   *FeedbackService
}

type envConfig struct {
	inventory InventoryConfig
	product   ProductConfig
}

func newTestEnv(t *testing.T, cfgs ...envConfig) *testEnv {
	t.Helper()

	var cfg envConfig
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}

	s := store.NewMemoryStore()
	pub := &fakePublisher{}
	locker := NewLocalLocker()
	seq := NewSequenceGenerator(s)
	inv := NewInventoryService(s, seq, locker, pub, cfg.inventory)

	return &testEnv{
		store:      s,
		publisher:  pub,
		seq:        seq,
		inventory:  inv,
		options:    NewOptionService(s, seq, inv, locker, pub),
		customizes: NewCustomizeService(s, seq, locker, pub),
		products:   NewProductService(s, seq, inv, locker, pub, cfg.product),
		orders:     NewOrderService(s, seq, locker, pub),
		feedback:   NewFeedbackService(s, seq, pub),
	}
}

func ptr[T any](v T) *T {
	return &v
}

func (e *testEnv) addIngredient(t *testing.T, name string, stock float64) *models.Ingredient {
	t.Helper()
	ing, err := e.inventory.Create(context.Background(), IngredientInput{Name: name, StockQuantity: ptr(stock)})
	require.NoError(t, err)
	return ing
}

func (e *testEnv) stockOf(t *testing.T, id string) float64 {
	t.Helper()
	ing, err := e.inventory.Get(context.Background(), id)
	require.NoError(t, err)
	return ing.StockQuantity
}

func (e *testEnv) addOption(t *testing.T, kind models.OptionKind, flavor string, price float64, uses ...models.IngredientUse) *models.Option {
	t.Helper()
	opt, err := e.options.Create(context.Background(), OptionInput{
		Name:        string(kind),
		Flavor:      flavor,
		Size:        "8",
		Shape:       "round",
		Price:       ptr(price),
		Ingredients: uses,
	})
	require.NoError(t, err)
	return opt
}

func use(ing *models.Ingredient, qty float64) models.IngredientUse {
	return models.IngredientUse{ID: ing.ID, Name: ing.Name, Quantity: qty, Unit: ing.Unit}
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}
