package core

import "strings"

// Category labels assigned by Categorize.
const (
	CategoryFoodDining     = "Food & Dining"
	CategoryTransportation = "Transportation"
	CategoryGroceries      = "Groceries"
	CategoryUncategorized  = "Uncategorized"
)

type categoryRule struct {
	keywords []string
	category string
}

// Order matters: the first rule with a matching keyword wins.
var categoryRules = []categoryRule{
	{keywords: []string{"starbucks", "restaurant"}, category: CategoryFoodDining},
	{keywords: []string{"uber", "lyft"}, category: CategoryTransportation},
	{keywords: []string{"walmart", "grocery"}, category: CategoryGroceries},
}

// Categorize maps a merchant name to a category label by case-insensitive
// substring match. Merchants matching no rule are Uncategorized.
func Categorize(merchant string) string {
	m := strings.ToLower(merchant)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(m, kw) {
				return rule.category
			}
		}
	}
	return CategoryUncategorized
}

// Categories returns every label Categorize can produce, in rule order.
func Categories() []string {
	out := make([]string, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		out = append(out, rule.category)
	}
	return append(out, CategoryUncategorized)
}

// IsCategory reports whether name is a known label.
func IsCategory(name string) bool {
	for _, c := range Categories() {
		if c == name {
			return true
		}
	}
	return false
}
