package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/dvloznov/receipt-tracker/internal/logger"
)

// Catalog is the set of categories visible to one owner: system defaults
// first, then the owner's own categories.
type Catalog struct {
	categories []domain.Category
	byName     map[string]int
	byID       map[string]int
}

// Vocabulary is the label set offered to the model, split by transaction type.
type Vocabulary struct {
	Expense []string
	Income  []string
}

// NewCatalog builds a catalog from the given categories. Duplicate IDs are
// dropped, and for duplicate names the earliest category wins lookups.
func NewCatalog(categories []domain.Category) *Catalog {
	c := &Catalog{
		categories: make([]domain.Category, 0, len(categories)),
		byName:     make(map[string]int, len(categories)),
		byID:       make(map[string]int, len(categories)),
	}
	seen := make(map[string]bool, len(categories))
	for _, cat := range categories {
		if cat.ID != "" {
			if seen[cat.ID] {
				continue
			}
			seen[cat.ID] = true
		}
		c.categories = append(c.categories, cat)
		if cat.ID != "" {
			c.byID[cat.ID] = len(c.categories) - 1
		}
		key := domain.NormalizeName(cat.Name)
		if _, exists := c.byName[key]; !exists && key != "" {
			c.byName[key] = len(c.categories) - 1
		}
	}
	return c
}

// LoadCatalog returns the defaults merged with the owner's stored categories.
// A store failure is logged and the defaults alone are returned.
func LoadCatalog(ctx context.Context, repo CategoryLister, userID string) *Catalog {
	all := domain.DefaultCategories()
	if repo == nil {
		return NewCatalog(all)
	}

	stored, err := repo.ListCategories(ctx, userID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("user_id", userID).Msg("category catalog unavailable, using defaults")
		return NewCatalog(all)
	}

	return NewCatalog(append(all, stored...))
}

// ReadCatalog is LoadCatalog for write paths: a store failure is returned
// instead of hidden, so callers never act on a catalog missing the owner's
// categories.
func ReadCatalog(ctx context.Context, repo CategoryLister, userID string) (*Catalog, error) {
	all := domain.DefaultCategories()
	if repo == nil {
		return NewCatalog(all), nil
	}

	stored, err := repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ReadCatalog: %w", err)
	}

	return NewCatalog(append(all, stored...)), nil
}

// Categories returns a copy of the catalog entries in order.
func (c *Catalog) Categories() []domain.Category {
	out := make([]domain.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Lookup finds a category by case-insensitive exact name.
func (c *Catalog) Lookup(name string) (domain.Category, bool) {
	i, ok := c.byName[domain.NormalizeName(name)]
	if !ok {
		return domain.Category{}, false
	}
	return c.categories[i], true
}

// Get finds a category by ID.
func (c *Catalog) Get(id string) (domain.Category, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Category{}, false
	}
	return c.categories[i], true
}

// Vocabulary lists category names usable for expenses and for income.
// Categories of type "both" appear in both lists.
func (c *Catalog) Vocabulary() Vocabulary {
	var v Vocabulary
	for _, cat := range c.categories {
		if cat.CategoryType.Accepts(domain.TransactionTypeExpense) {
			v.Expense = append(v.Expense, cat.Name)
		}
		if cat.CategoryType.Accepts(domain.TransactionTypeIncome) {
			v.Income = append(v.Income, cat.Name)
		}
	}
	return v
}
