package catalog

import (
	"slices"
	"strings"
)

const (
	AllCategories = "All"

	featuredLimit    = 8
	newArrivalsLimit = 6
)

// Categories is the fixed list offered in the category filter.
var Categories = []string{
	AllCategories,
	"Food & Groceries",
	"Electronics",
	"Furniture",
	"Clothing",
	"Personal Care",
	"Home Supplies",
	"Other",
}

type Sort string

const (
	SortNewest    Sort = "newest"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
)

// ParseSort accepts the sort keys and the labels shown in the storefront.
// Anything else sorts newest first.
func ParseSort(s string) Sort {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "price_asc", "price: low to high":
		return SortPriceAsc
	case "price_desc", "price: high to low":
		return SortPriceDesc
	default:
		return SortNewest
	}
}

type Query struct {
	Text          string
	Category      string
	AvailableOnly bool
	Sort          Sort
}

// Apply filters and sorts products. Text matches case-insensitively against
// the name, any tag or the category. The sort is stable.
func Apply(products []Product, q Query) []Product {
	needle := strings.ToLower(strings.TrimSpace(q.Text))

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if !inCategory(p, q.Category) {
			continue
		}
		if q.AvailableOnly && !p.Available() {
			continue
		}
		if needle != "" && !matches(p, needle) {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b Product) int {
			return a.PriceValue().Cmp(b.PriceValue())
		})
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b Product) int {
			return b.PriceValue().Cmp(a.PriceValue())
		})
	default:
		slices.SortStableFunc(out, newestFirst)
	}
	return out
}

// Featured returns the first available products in catalog order.
func Featured(products []Product) []Product {
	out := make([]Product, 0, featuredLimit)
	for _, p := range products {
		if len(out) == featuredLimit {
			break
		}
		if p.Available() {
			out = append(out, p)
		}
	}
	return out
}

func NewArrivals(products []Product) []Product {
	sorted := slices.Clone(products)
	slices.SortStableFunc(sorted, newestFirst)
	if len(sorted) > newArrivalsLimit {
		sorted = sorted[:newArrivalsLimit]
	}
	return sorted
}

func inCategory(p Product, category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || category == AllCategories || p.Category == category
}

func matches(p Product, needle string) bool {
	if strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Category), needle) {
		return true
	}
	return slices.ContainsFunc(p.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), needle)
	})
}

func newestFirst(a, b Product) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}
