package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestSequenceUniqueUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const callers = 100
	ids := make([]string, callers)

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			id, err := env.seq.Next(ctx, models.PrefixOption, models.CounterOption)
			ids[i] = id
			return err
		})
	}
	require.NoError(t, g.Wait())

	want := make(map[string]bool, callers)
	for i := 1; i <= callers; i++ {
		want[fmt.Sprintf("OPT-%04d", i)] = true
	}
	seen := make(map[string]bool, callers)
	for _, id := range ids {
		assert.True(t, want[id], "unexpected id %s", id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, callers)
}

func TestFormatIDWidensPastFourDigits(t *testing.T) {
	assert.Equal(t, "ING-0007", formatID(models.PrefixIngredient, 7))
	assert.Equal(t, "ORD-12345", formatID(models.PrefixOrder, 12345))
}

func TestAdjustStockSumsDeltas(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flour := env.addIngredient(t, "flour", 1000)
	sugar := env.addIngredient(t, "sugar", 500)

	var g errgroup.Group
	for i := 0; i < 25; i++ {
		g.Go(func() error {
			if _, err := env.inventory.AdjustStock(ctx, flour.ID, -10); err != nil {
				return err
			}
			_, err := env.inventory.AdjustStock(ctx, sugar.ID, 4)
			return err
		})
		g.Go(func() error {
			_, err := env.inventory.AdjustStock(ctx, flour.ID, 2)
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1000-250+50.0, env.stockOf(t, flour.ID))
	assert.Equal(t, 600.0, env.stockOf(t, sugar.ID))
}

func TestAdjustStockNegativeIsWarningNotError(t *testing.T) {
	env := newTestEnv(t)
	ing := env.addIngredient(t, "butter", 50)

	updated, err := env.inventory.AdjustStock(context.Background(), ing.ID, -80)
	require.NoError(t, err)
	assert.Equal(t, -30.0, updated.StockQuantity)

	low := env.publisher.stockEvents(models.EventTypeStockLow)
	require.Len(t, low, 1)
	assert.Equal(t, ing.ID, low[0].IngredientID)
}

func TestAdjustStockFloorEnforced(t *testing.T) {
	env := newTestEnv(t, envConfig{inventory: InventoryConfig{EnforceFloor: true}})
	ing := env.addIngredient(t, "butter", 50)

	_, err := env.inventory.AdjustStock(context.Background(), ing.ID, -80)
	requireKind(t, err, KindInsufficientStock)
	assert.Equal(t, 50.0, env.stockOf(t, ing.ID))

	_, err = env.inventory.AdjustStock(context.Background(), ing.ID, -50)
	require.NoError(t, err)
	assert.Equal(t, 0.0, env.stockOf(t, ing.ID))
}

func TestAdjustStockLowThreshold(t *testing.T) {
	env := newTestEnv(t, envConfig{inventory: InventoryConfig{LowStockThreshold: 100}})
	ing := env.addIngredient(t, "cocoa", 150)

	_, err := env.inventory.AdjustStock(context.Background(), ing.ID, -20)
	require.NoError(t, err)
	assert.Empty(t, env.publisher.stockEvents(models.EventTypeStockLow))

	_, err = env.inventory.AdjustStock(context.Background(), ing.ID, -40)
	require.NoError(t, err)
	assert.Len(t, env.publisher.stockEvents(models.EventTypeStockLow), 1)
	assert.Len(t, env.publisher.stockEvents(models.EventTypeStockAdjusted), 2)
}

func TestAdjustStockUnknownIngredient(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.inventory.AdjustStock(context.Background(), "ING-9999", 5)
	requireKind(t, err, KindNotFound)
}

func TestIngredientCreateAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ing := env.addIngredient(t, "vanilla", 10)
	assert.Equal(t, "ING-0001", ing.ID)
	assert.Equal(t, "grams", ing.Unit)

	_, err := env.inventory.Create(ctx, IngredientInput{Name: "vanilla", StockQuantity: ptr(5.0)})
	requireKind(t, err, KindDuplicate)

	_, err = env.inventory.Create(ctx, IngredientInput{Name: "milk"})
	requireKind(t, err, KindValidation)

	updated, err := env.inventory.Update(ctx, ing.ID, IngredientUpdate{Unit: ptr("ml"), StockQuantity: ptr(25.0)})
	require.NoError(t, err)
	assert.Equal(t, "ml", updated.Unit)
	assert.Equal(t, 25.0, updated.StockQuantity)

	_, err = env.inventory.Update(ctx, "ING-4040", IngredientUpdate{Unit: ptr("ml")})
	requireKind(t, err, KindNotFound)

	list, err := env.inventory.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// interleavedStore applies a stock change right before the first field update
// reaches the underlying store, as a concurrent order would
type interleavedStore struct {
	*store.MemoryStore
	before func()
}

func (s *interleavedStore) Set(ctx context.Context, collection, id string, fields store.Fields, out interface{}) error {
	if s.before != nil {
		s.before()
		s.before = nil
	}
	return s.MemoryStore.Set(ctx, collection, id, fields, out)
}

func TestRenameKeepsConcurrentDeduction(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	st := &interleavedStore{MemoryStore: mem}
	inv := NewInventoryService(st, NewSequenceGenerator(st), NewLocalLocker(), &fakePublisher{}, InventoryConfig{})

	ing, err := inv.Create(ctx, IngredientInput{Name: "Flour", StockQuantity: ptr(1000.0)})
	require.NoError(t, err)

	st.before = func() {
		var out models.Ingredient
		require.NoError(t, mem.Increment(ctx, models.CollectionIngredients, ing.ID, store.Delta{Field: "stock_quantity", Amount: -200}, &out))
	}

	renamed, err := inv.Update(ctx, ing.ID, IngredientUpdate{Name: ptr("Cake Flour")})
	require.NoError(t, err)
	assert.Equal(t, "Cake Flour", renamed.Name)
	assert.Equal(t, 800.0, renamed.StockQuantity)

	got, err := inv.Get(ctx, ing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cake Flour", got.Name)
	assert.Equal(t, 800.0, got.StockQuantity)
}

func TestUpdateStockTargetsLatestLevel(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	st := &interleavedStore{MemoryStore: mem}
	inv := NewInventoryService(st, NewSequenceGenerator(st), NewLocalLocker(), &fakePublisher{}, InventoryConfig{})

	ing, err := inv.Create(ctx, IngredientInput{Name: "Sugar", StockQuantity: ptr(500.0)})
	require.NoError(t, err)

	st.before = func() {
		var out models.Ingredient
		require.NoError(t, mem.Increment(ctx, models.CollectionIngredients, ing.ID, store.Delta{Field: "stock_quantity", Amount: -100}, &out))
	}

	updated, err := inv.Update(ctx, ing.ID, IngredientUpdate{Unit: ptr("kg"), StockQuantity: ptr(600.0)})
	require.NoError(t, err)
	assert.Equal(t, "kg", updated.Unit)
	assert.Equal(t, 600.0, updated.StockQuantity)
}

func TestIngredientNamesAreCaseSensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	upper := env.addIngredient(t, "Flour", 10)
	lower := env.addIngredient(t, "flour", 20)
	assert.NotEqual(t, upper.ID, lower.ID)

	_, err := env.inventory.Create(ctx, IngredientInput{Name: "Flour", StockQuantity: ptr(5.0)})
	requireKind(t, err, KindDuplicate)
}

func TestRenameRejectsTakenName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	flour := env.addIngredient(t, "Flour", 10)
	sugar := env.addIngredient(t, "Sugar", 20)

	_, err := env.inventory.Update(ctx, sugar.ID, IngredientUpdate{Name: ptr("Flour")})
	requireKind(t, err, KindDuplicate)

	got, err := env.inventory.Get(ctx, sugar.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sugar", got.Name)

	same, err := env.inventory.Update(ctx, flour.ID, IngredientUpdate{Name: ptr("Flour"), Unit: ptr("kg")})
	require.NoError(t, err)
	assert.Equal(t, "Flour", same.Name)
	assert.Equal(t, "kg", same.Unit)

	renamed, err := env.inventory.Update(ctx, sugar.ID, IngredientUpdate{Name: ptr("sugar")})
	require.NoError(t, err)
	assert.Equal(t, "sugar", renamed.Name)
}

func TestVerifyExistNamesMissingIngredient(t *testing.T) {
	env := newTestEnv(t)
	ing := env.addIngredient(t, "flour", 1)

	err := env.inventory.VerifyExist(context.Background(), []string{ing.ID, "ING-0042"})
	requireKind(t, err, KindValidation)
	assert.Equal(t, "Ingredient with ID ING-0042 not found", MessageOf(err))
}
