package models

import "strings"

// Category is the signal type a permit belongs to
type Category string

const (
	CategorySolar         Category = "solar"
	CategoryBattery       Category = "battery"
	CategoryGenerator     Category = "generator"
	CategoryEVCharger     Category = "ev_charger"
	CategoryADU           Category = "adu"
	CategoryPanelUpgrade  Category = "panel_upgrade"
	CategoryUncategorized Category = "uncategorized"

	// CategoryAll is the filter sentinel meaning "no category filter"
	CategoryAll Category = "all"
)

// Categories lists the signal categories in their fixed display order
var Categories = []Category{
	CategorySolar,
	CategoryBattery,
	CategoryGenerator,
	CategoryEVCharger,
	CategoryADU,
	CategoryPanelUpgrade,
}

// categoryAliases maps upstream spellings onto canonical tags
var categoryAliases = map[string]Category{
	"ev":             CategoryEVCharger,
	"ev-charger":     CategoryEVCharger,
	"accessory_unit": CategoryADU,
	"accessory-unit": CategoryADU,
	"panel-upgrade":  CategoryPanelUpgrade,
	"other":          CategoryUncategorized,
	"":               CategoryUncategorized,
}

// ParseCategory maps a raw tag onto a known category.
// Unknown tags become CategoryUncategorized.
func ParseCategory(raw string) Category {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if c, ok := categoryAliases[tag]; ok {
		return c
	}
	switch c := Category(tag); c {
	case CategoryAll, CategoryUncategorized:
		return c
	default:
		for _, known := range Categories {
			if c == known {
				return c
			}
		}
	}
	return CategoryUncategorized
}

// IsSentinel reports whether the category is "all" or "uncategorized"
func (c Category) IsSentinel() bool {
	return c == CategoryAll || c == CategoryUncategorized
}

// Rank returns the position of c in the fixed category order.
// Sentinels sort after every signal category.
func (c Category) Rank() int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	if c == CategoryUncategorized {
		return len(Categories)
	}
	return len(Categories) + 1
}
