package models

import (
	"fmt"
	"strings"
)

// Category is one independent data lane. Each category has its own
// destination collection, its own key schema and its own checkpoint entry.
type Category string

const (
	CategorySeason Category = "season"
	CategoryWeekly Category = "weekly"
	CategoryRoster Category = "roster"
)

// AllCategories lists every lane in processing order.
var AllCategories = []Category{CategorySeason, CategoryWeekly, CategoryRoster}

// ParseCategory resolves a user-supplied name (case-insensitive) to a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategorySeason:
		return CategorySeason, nil
	case CategoryWeekly:
		return CategoryWeekly, nil
	case CategoryRoster:
		return CategoryRoster, nil
	}
	return "", fmt.Errorf("unknown category %q (expected season, weekly or roster)", s)
}

// Collection returns the destination collection name for the category.
func (c Category) Collection() string {
	switch c {
	case CategorySeason:
		return "season_stats"
	case CategoryWeekly:
		return "weekly_stats"
	case CategoryRoster:
		return "rosters"
	}
	return string(c)
}

// KeyFields returns the natural-key fields for the category, in the order
// they are joined into a document key.
func (c Category) KeyFields() []string {
	switch c {
	case CategoryWeekly:
		return []string{"season", "week", "player_id"}
	default:
		return []string{"season", "player_id"}
	}
}

// FilePrefix returns the source file name prefix for the category.
// Files are named <prefix>_<period>.csv, one per sub-period.
func (c Category) FilePrefix() string {
	switch c {
	case CategorySeason:
		return "season_stats"
	case CategoryWeekly:
		return "weekly_stats"
	case CategoryRoster:
		return "roster"
	}
	return string(c)
}
