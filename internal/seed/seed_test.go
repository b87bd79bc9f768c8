package seed

import (
	"context"
	"testing"

	"github.com/dewmini3/CakeCustomizing/internal/broker"
	"github.com/dewmini3/CakeCustomizing/internal/service"
	"github.com/dewmini3/CakeCustomizing/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServices() (*service.InventoryService, *service.OptionService) {
	s := store.NewMemoryStore()
	seq := service.NewSequenceGenerator(s)
	locker := service.NewLocalLocker()
	pub := broker.NewEventPublisher(broker.NewLogPublisher())
	inv := service.NewInventoryService(s, seq, locker, pub, service.InventoryConfig{})
	return inv, service.NewOptionService(s, seq, inv, locker, pub)
}

func TestLoadCatalog(t *testing.T) {
	c, err := Load("testdata/catalog.yaml")
	require.NoError(t, err)

	require.Len(t, c.Ingredients, 3)
	require.Len(t, c.Options, 3)
	assert.Equal(t, 5000.0, c.Ingredients[0].StockQuantity)
	assert.Equal(t, "8", c.Options[0].Size)
	assert.Equal(t, "Whipped", c.Options[2].Specifications)
}

func TestApplyDeductsAndIsRepeatable(t *testing.T) {
	ctx := context.Background()
	inv, opts := newServices()

	c, err := Load("testdata/catalog.yaml")
	require.NoError(t, err)

	res, err := Apply(ctx, c, inv, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.IngredientsCreated)
	assert.Equal(t, 3, res.OptionsCreated)

	ingredients, err := inv.List(ctx)
	require.NoError(t, err)
	stock := map[string]float64{}
	for _, ing := range ingredients {
		stock[ing.Name] = ing.StockQuantity
	}
	assert.Equal(t, 4500.0, stock["Flour"])
	assert.Equal(t, 1950.0, stock["Sugar"])
	assert.Equal(t, 1400.0, stock["Butter"])

	res, err = Apply(ctx, c, inv, opts)
	require.NoError(t, err)
	assert.Zero(t, res.IngredientsCreated)
	assert.Zero(t, res.OptionsCreated)
	assert.Equal(t, 6, res.Skipped)
}

func TestApplyUnknownIngredient(t *testing.T) {
	inv, opts := newServices()
	c, err := Parse([]byte(`
options:
  - name: filling
    flavor: Lemon
    size: "8"
    shape: round
    price: 4
    ingredients:
      - ingredient: lemons
        quantity: 2
`))
	require.NoError(t, err)

	_, err = Apply(context.Background(), c, inv, opts)
	assert.ErrorContains(t, err, "unknown ingredient")
}

func TestApplyMatchesIngredientNamesExactly(t *testing.T) {
	inv, opts := newServices()
	c, err := Parse([]byte(`
ingredients:
  - name: Lemons
    stock_quantity: 10
  - name: lemons
    stock_quantity: 20
options:
  - name: filling
    flavor: Lemon
    size: "8"
    shape: round
    price: 4
    ingredients:
      - ingredient: LEMONS
        quantity: 2
`))
	require.NoError(t, err)

	res, err := Apply(context.Background(), c, inv, opts)
	assert.ErrorContains(t, err, "unknown ingredient")
	require.NotNil(t, res)
	assert.Equal(t, 2, res.IngredientsCreated)
}
