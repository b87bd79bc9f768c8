package service

import (
	"strings"

	"github.com/dewmini3/CakeCustomizing/internal/models"
)

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func normalizeSize(size string) (string, bool) {
	size = strings.TrimSpace(size)
	return size, contains(models.CakeSizes, size)
}

func normalizeShape(shape string) (string, bool) {
	shape = strings.ToLower(strings.TrimSpace(shape))
	return shape, contains(models.CakeShapes, shape)
}

func normalizeKind(name string) (models.OptionKind, bool) {
	kind := models.OptionKind(strings.ToLower(strings.TrimSpace(name)))
	switch kind {
	case models.OptionKindBase, models.OptionKindFilling, models.OptionKindFrosting, models.OptionKindDecoration:
		return kind, true
	}
	return kind, false
}

// normalizeUses validates a bill of ingredients and returns a copy with
// lowercase names and the default unit filled in
func normalizeUses(uses []models.IngredientUse) ([]models.IngredientUse, error) {
	out := make([]models.IngredientUse, 0, len(uses))
	for _, use := range uses {
		id := strings.TrimSpace(use.ID)
		name := strings.ToLower(strings.TrimSpace(use.Name))
		if id == "" || name == "" || !(use.Quantity > 0) {
			return nil, validationError("Invalid ingredients format")
		}
		unit := strings.TrimSpace(use.Unit)
		if unit == "" {
			unit = defaultUnit
		}
		out = append(out, models.IngredientUse{ID: id, Name: name, Quantity: use.Quantity, Unit: unit})
	}
	return out, nil
}

func useIDs(uses []models.IngredientUse) []string {
	ids := make([]string, len(uses))
	for i, use := range uses {
		ids[i] = use.ID
	}
	return ids
}

// mergeUses sums quantities by ingredient id, keeping first-seen order
func mergeUses(lists ...[]models.IngredientUse) []models.IngredientUse {
	merged := []models.IngredientUse{}
	index := make(map[string]int)
	for _, list := range lists {
		for _, use := range list {
			if i, ok := index[use.ID]; ok {
				merged[i].Quantity += use.Quantity
				continue
			}
			index[use.ID] = len(merged)
			merged = append(merged, use)
		}
	}
	return merged
}
