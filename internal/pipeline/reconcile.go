package pipeline

import (
	"context"
	"strings"

	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/dvloznov/receipt-tracker/internal/logger"
)

// NewCategoryCache remembers categories created during one batch, keyed by
// normalized name. Entries are added only after a successful creation.
type NewCategoryCache map[string]string

// Lookup returns the ID created earlier in the batch for name.
func (c NewCategoryCache) Lookup(name string) (string, bool) {
	id, ok := c[domain.NormalizeName(name)]
	return id, ok
}

func (c NewCategoryCache) store(name, id string) {
	c[domain.NormalizeName(name)] = id
}

// Resolve matches each item's category label against the catalog
// (case-insensitive, exact) and sets CategoryID on matches. A CategoryID
// already present is kept only when the catalog knows it. The input slice
// is not modified.
func Resolve(items []domain.LineItem, catalog *Catalog) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	for i, item := range items {
		if item.CategoryID != nil && catalog != nil {
			if _, ok := catalog.Get(*item.CategoryID); !ok {
				item.CategoryID = nil
			}
		}
		if item.CategoryID == nil && catalog != nil {
			if cat, ok := catalog.Lookup(item.CategoryLabel); ok {
				id := cat.ID
				item.CategoryID = &id
				item.IsNewCategory = false
			}
		}
		out[i] = item
	}
	return out
}

// Reconciler creates the categories the model proposed and links items to them.
type Reconciler struct {
	repo CategoryCreator
}

// NewReconciler creates a Reconciler writing through repo.
func NewReconciler(repo CategoryCreator) *Reconciler {
	return &Reconciler{repo: repo}
}

// Reconcile resolves every item to an existing category, to one created
// earlier in this batch, or to a newly created category when the item is
// flagged as new. Creation failures are logged and leave the item
// uncategorized. Items are processed in order so the first proposal of a
// name is the one that gets created.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	userID string,
	items []domain.LineItem,
	catalog *Catalog,
	cache NewCategoryCache,
) []domain.LineItem {
	log := logger.FromContext(ctx)
	if cache == nil {
		cache = NewCategoryCache{}
	}

	out := Resolve(items, catalog)
	for i := range out {
		item := &out[i]
		if item.CategoryID != nil {
			continue
		}

		label := strings.TrimSpace(item.CategoryLabel)
		if label == "" {
			continue
		}

		if id, ok := cache.Lookup(label); ok {
			item.CategoryID = &id
			continue
		}

		if !item.IsNewCategory {
			continue
		}

		cat := newCategoryFor(userID, label, *item)
		if err := r.repo.CreateCategory(ctx, &cat); err != nil {
			log.Warn().Err(err).
				Str("user_id", userID).
				Str("category", label).
				Msg("category creation failed, item left uncategorized")
			continue
		}

		cache.store(label, cat.ID)
		id := cat.ID
		item.CategoryID = &id
	}

	return out
}

func newCategoryFor(userID, label string, item domain.LineItem) domain.Category {
	owner := userID
	color := strings.TrimSpace(item.SuggestedColor)
	if !strings.HasPrefix(strings.ToLower(color), "hsl(") {
		color = domain.DefaultColor
	}

	catType := domain.CategoryTypeExpense
	if item.TransactionType == domain.TransactionTypeIncome {
		catType = domain.CategoryTypeIncome
	}

	return domain.Category{
		OwnerID:      &owner,
		Name:         label,
		Icon:         domain.ParseIcon(item.SuggestedIcon),
		Color:        color,
		CategoryType: catType,
	}
}
