package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/service"
	"github.com/dewmini3/CakeCustomizing/internal/util"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Catalog is the YAML layout of a starter catalog
type Catalog struct {
	Ingredients []Ingredient `yaml:"ingredients"`
	Options     []Option     `yaml:"options"`
}

type Ingredient struct {
	Name          string  `yaml:"name"`
	StockQuantity float64 `yaml:"stock_quantity"`
	Unit          string  `yaml:"unit"`
}

type Option struct {
	Name           string   `yaml:"name"`
	Flavor         string   `yaml:"flavor"`
	Size           string   `yaml:"size"`
	Shape          string   `yaml:"shape"`
	Price          float64  `yaml:"price"`
	Specifications string   `yaml:"specifications"`
	Ingredients    []Amount `yaml:"ingredients"`
}

// Amount references a seeded ingredient by name
type Amount struct {
	Ingredient string  `yaml:"ingredient"`
	Quantity   float64 `yaml:"quantity"`
}

// Result counts what Apply created and skipped
type Result struct {
	IngredientsCreated int
	OptionsCreated     int
	Skipped            int
}

// Load reads a catalog file
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a catalog document
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &c, nil
}

// Apply creates the catalog through the services. Entries that already exist
// are skipped so the same file can be applied on every start.
func Apply(ctx context.Context, c *Catalog, inventory *service.InventoryService, options *service.OptionService) (*Result, error) {
	logger := util.GetLogger()
	res := &Result{}

	existing, err := inventory.List(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]models.Ingredient, len(existing))
	for _, ing := range existing {
		byName[ing.Name] = ing
	}

	for _, in := range c.Ingredients {
		if _, ok := byName[in.Name]; ok {
			res.Skipped++
			continue
		}
		qty := in.StockQuantity
		ing, err := inventory.Create(ctx, service.IngredientInput{Name: in.Name, StockQuantity: &qty, Unit: in.Unit})
		if err != nil {
			if service.KindOf(err) == service.KindDuplicate {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("failed to seed ingredient %q: %w", in.Name, err)
		}
		byName[ing.Name] = *ing
		res.IngredientsCreated++
	}

	for _, o := range c.Options {
		uses := make([]models.IngredientUse, 0, len(o.Ingredients))
		for _, a := range o.Ingredients {
			ing, ok := byName[a.Ingredient]
			if !ok {
				return res, fmt.Errorf("option %s/%s references unknown ingredient %q", o.Name, o.Flavor, a.Ingredient)
			}
			uses = append(uses, models.IngredientUse{ID: ing.ID, Name: ing.Name, Quantity: a.Quantity, Unit: ing.Unit})
		}

		price := o.Price
		_, err := options.Create(ctx, service.OptionInput{
			Name:           o.Name,
			Flavor:         o.Flavor,
			Size:           o.Size,
			Shape:          o.Shape,
			Price:          &price,
			Specifications: o.Specifications,
			Ingredients:    uses,
		})
		if err != nil {
			if service.KindOf(err) == service.KindDuplicate {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("failed to seed option %s/%s: %w", o.Name, o.Flavor, err)
		}
		res.OptionsCreated++
	}

	logger.Info("Catalog seeded",
		zap.Int("ingredients", res.IngredientsCreated),
		zap.Int("options", res.OptionsCreated),
		zap.Int("skipped", res.Skipped))
	return res, nil
}
