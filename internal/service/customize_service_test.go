package service

import (
	"context"
	"testing"

	"github.com/dewmini3/CakeCustomizing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cakeFixture struct {
	env                                *testEnv
	base, filling, frosting, sprinkles *models.Option
	flour, sugar, butter, candy        *models.Ingredient
}

func newCakeFixture(t *testing.T) *cakeFixture {
	env := newTestEnv(t)
	f := &cakeFixture{env: env}
	f.flour = env.addIngredient(t, "flour", 5000)
	f.sugar = env.addIngredient(t, "sugar", 5000)
	f.butter = env.addIngredient(t, "butter", 5000)
	f.candy = env.addIngredient(t, "sprinkles", 5000)

	f.base = env.addOption(t, models.OptionKindBase, "vanilla", 10, use(f.flour, 500))
	f.filling = env.addOption(t, models.OptionKindFilling, "jam", 5, use(f.sugar, 50))
	f.frosting = env.addOption(t, models.OptionKindFrosting, "buttercream", 8, use(f.butter, 100))
	f.sprinkles = env.addOption(t, models.OptionKindDecoration, "sprinkles", 3, use(f.candy, 20))
	return f
}

func (f *cakeFixture) input() CustomizeInput {
	return CustomizeInput{
		Layers:      2,
		Size:        "8",
		Shape:       "Round",
		Bases:       []string{f.base.ID, f.base.ID},
		Filling:     f.filling.ID,
		Frosting:    f.frosting.ID,
		Decorations: []string{f.sprinkles.ID},
	}
}

func TestCustomizeAggregatesPriceAndIngredients(t *testing.T) {
	f := newCakeFixture(t)
	stockBefore := f.env.stockOf(t, f.flour.ID)

	c, err := f.env.customizes.Create(context.Background(), f.input())
	require.NoError(t, err)

	assert.Equal(t, "CSM-0001", c.ID)
	assert.Equal(t, "round", c.Shape)
	assert.Equal(t, 36.0, c.Price)
	require.Len(t, c.Bases, 2)
	assert.Equal(t, f.base.ID, c.Bases[1].ID)

	got := make(map[string]float64)
	for _, u := range c.Ingredients {
		got[u.Name] = u.Quantity
	}
	assert.Equal(t, map[string]float64{"flour": 1000, "sugar": 50, "butter": 100, "sprinkles": 20}, got)

	// composing a cake does not consume stock
	assert.Equal(t, stockBefore, f.env.stockOf(t, f.flour.ID))
	assert.Len(t, f.env.publisher.customize, 1)

	// the options' own bills of ingredients are not mutated by the merge
	var base models.Option
	require.NoError(t, f.env.store.FindByID(context.Background(), models.CollectionOptions, f.base.ID, &base))
	assert.Equal(t, 500.0, base.Ingredients[0].Quantity)
}

func TestCustomizePriceHasNoFloatDrift(t *testing.T) {
	env := newTestEnv(t)
	base := env.addOption(t, models.OptionKindBase, "vanilla", 0.1)
	filling := env.addOption(t, models.OptionKindFilling, "jam", 0.2)
	frosting := env.addOption(t, models.OptionKindFrosting, "cream", 0.3)
	deco := env.addOption(t, models.OptionKindDecoration, "pearls", 0.4)

	c, err := env.customizes.Create(context.Background(), CustomizeInput{
		Layers: 1, Size: "8", Shape: "round",
		Bases: []string{base.ID}, Filling: filling.ID, Frosting: frosting.ID,
		Decorations: []string{deco.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.Price)
}

func TestCustomizeDuplicateRejected(t *testing.T) {
	f := newCakeFixture(t)
	ctx := context.Background()

	_, err := f.env.customizes.Create(ctx, f.input())
	require.NoError(t, err)

	_, err = f.env.customizes.Create(ctx, f.input())
	requireKind(t, err, KindDuplicate)

	other := f.env.addOption(t, models.OptionKindBase, "chocolate", 12)

	// base order is significant
	in := f.input()
	in.Bases = []string{other.ID, f.base.ID}
	_, err = f.env.customizes.Create(ctx, in)
	require.NoError(t, err)

	in.Bases = []string{f.base.ID, other.ID}
	_, err = f.env.customizes.Create(ctx, in)
	require.NoError(t, err)

	list, err := f.env.customizes.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestCustomizeValidation(t *testing.T) {
	f := newCakeFixture(t)
	ctx := context.Background()

	square := f.env.addOption(t, models.OptionKindBase, "lemon", 9)
	_, err := f.env.options.Update(ctx, square.ID, OptionUpdate{Shape: ptr("square")})
	require.NoError(t, err)

	cases := map[string]func(*CustomizeInput){
		"size":               func(in *CustomizeInput) { in.Size = "7" },
		"shape":              func(in *CustomizeInput) { in.Shape = "oval" },
		"zero layers":        func(in *CustomizeInput) { in.Layers = 0; in.Bases = nil },
		"bases mismatch":     func(in *CustomizeInput) { in.Layers = 3 },
		"no decorations":     func(in *CustomizeInput) { in.Decorations = nil },
		"missing filling":    func(in *CustomizeInput) { in.Filling = "" },
		"unknown option":     func(in *CustomizeInput) { in.Frosting = "OPT-0999" },
		"wrong kind":         func(in *CustomizeInput) { in.Filling = f.frosting.ID },
		"wrong shape":        func(in *CustomizeInput) { in.Bases = []string{f.base.ID, square.ID} },
		"base as decoration": func(in *CustomizeInput) { in.Decorations = []string{f.base.ID} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := f.input()
			mutate(&in)
			_, err := f.env.customizes.Create(ctx, in)
			requireKind(t, err, KindValidation)
		})
	}
}

func TestAvailableOptionsPartitionsByKind(t *testing.T) {
	f := newCakeFixture(t)
	ctx := context.Background()

	small := f.env.addOption(t, models.OptionKindFilling, "custard", 4)
	_, err := f.env.options.Update(ctx, small.ID, OptionUpdate{Size: ptr("6")})
	require.NoError(t, err)

	got, err := f.env.customizes.AvailableOptions(ctx, "8", "ROUND")
	require.NoError(t, err)
	require.Len(t, got.Bases, 1)
	require.Len(t, got.Fillings, 1)
	require.Len(t, got.Frostings, 1)
	require.Len(t, got.Decorations, 1)
	assert.Equal(t, f.filling.ID, got.Fillings[0].ID)

	empty, err := f.env.customizes.AvailableOptions(ctx, "12", "heart")
	require.NoError(t, err)
	assert.NotNil(t, empty.Bases)
	assert.Empty(t, empty.Bases)

	_, err = f.env.customizes.AvailableOptions(ctx, "5", "heart")
	requireKind(t, err, KindValidation)
}
