package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/dvloznov/receipt-tracker/internal/logger"
)

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.Nop())
}

func TestResolve_CaseInsensitiveMatch(t *testing.T) {
	catalog := NewCatalog(domain.DefaultCategories())
	items := []domain.LineItem{
		{Name: "Taxi", Amount: 1, CategoryLabel: "transport"},
		{Name: "Bus", Amount: 1, CategoryLabel: "  TRANSPORT "},
		{Name: "Gym", Amount: 1, CategoryLabel: "Fitness", IsNewCategory: true},
		{Name: "Mystery", Amount: 1},
	}

	got := Resolve(items, catalog)

	for _, i := range []int{0, 1} {
		if got[i].CategoryID == nil || *got[i].CategoryID != "default-transport" {
			t.Errorf("item %d: CategoryID = %v, want default-transport", i, got[i].CategoryID)
		}
	}
	if got[2].CategoryID != nil || !got[2].IsNewCategory {
		t.Errorf("unmatched new category should stay pending, got %+v", got[2])
	}
	if got[3].CategoryID != nil {
		t.Errorf("unlabeled item should be uncategorized, got %v", *got[3].CategoryID)
	}
	if items[0].CategoryID != nil {
		t.Error("Resolve must not modify its input")
	}
}

func TestResolve_ExistingMatchOverridesNewFlag(t *testing.T) {
	catalog := NewCatalog(domain.DefaultCategories())
	got := Resolve([]domain.LineItem{{Name: "Latte", Amount: 1, CategoryLabel: "Cafe", IsNewCategory: true}}, catalog)
	if got[0].CategoryID == nil || *got[0].CategoryID != "default-cafe" || got[0].IsNewCategory {
		t.Errorf("unexpected item %+v", got[0])
	}
}

func TestReconcile_DeduplicatesNewCategoriesInBatch(t *testing.T) {
	repo := &mockCategoryRepo{}
	r := NewReconciler(repo)
	catalog := NewCatalog(domain.DefaultCategories())
	items := []domain.LineItem{
		{Name: "Netflix", Amount: 17000, CategoryLabel: "Subscriptions", IsNewCategory: true, SuggestedIcon: "tv", SuggestedColor: "hsl(0, 80%, 50%)"},
		{Name: "Spotify", Amount: 11000, CategoryLabel: "subscriptions", IsNewCategory: true, SuggestedIcon: "Music"},
	}

	got := r.Reconcile(testContext(), "user-1", items, catalog, NewCategoryCache{})

	if len(repo.created) != 1 {
		t.Fatalf("expected exactly one category creation, got %d", len(repo.created))
	}
	created := repo.created[0]
	if created.Name != "Subscriptions" || created.Icon != domain.IconTv || created.Color != "hsl(0, 80%, 50%)" {
		t.Errorf("unexpected created category %+v", created)
	}
	if created.OwnerID == nil || *created.OwnerID != "user-1" {
		t.Errorf("created category owner = %v", created.OwnerID)
	}
	for i, item := range got {
		if item.CategoryID == nil || *item.CategoryID != created.ID {
			t.Errorf("item %d: CategoryID = %v, want %s", i, item.CategoryID, created.ID)
		}
	}
}

func TestReconcile_CacheFilledOnlyOnSuccess(t *testing.T) {
	calls := 0
	repo := &mockCategoryRepo{
		CreateCategoryFunc: func(ctx context.Context, c *domain.Category) error {
			calls++
			if calls == 1 {
				return errors.New("store unavailable")
			}
			return nil
		},
	}
	r := NewReconciler(repo)
	cache := NewCategoryCache{}
	items := []domain.LineItem{
		{Name: "A", Amount: 1, CategoryLabel: "Pets", IsNewCategory: true},
		{Name: "B", Amount: 1, CategoryLabel: "PETS", IsNewCategory: true},
	}

	got := r.Reconcile(testContext(), "user-1", items, NewCatalog(nil), cache)

	if calls != 2 {
		t.Fatalf("expected a retry of the creation for the second item, got %d calls", calls)
	}
	if got[0].CategoryID != nil {
		t.Errorf("failed creation should leave item uncategorized, got %v", *got[0].CategoryID)
	}
	if got[1].CategoryID == nil {
		t.Fatal("second item should use the category created for it")
	}
	if id, ok := cache.Lookup("pets"); !ok || id != *got[1].CategoryID {
		t.Errorf("cache entry = (%q, %v)", id, ok)
	}
}

func TestReconcile_Fallbacks(t *testing.T) {
	repo := &mockCategoryRepo{}
	r := NewReconciler(repo)
	items := []domain.LineItem{
		{Name: "Bonus", Amount: 1, TransactionType: domain.TransactionTypeIncome, CategoryLabel: "Bonuses", IsNewCategory: true, SuggestedIcon: "Rocket", SuggestedColor: "red"},
		{Name: "Thing", Amount: 1, CategoryLabel: "Unknown Stuff"},
	}

	got := r.Reconcile(testContext(), "user-1", items, NewCatalog(domain.DefaultCategories()), nil)

	if len(repo.created) != 1 {
		t.Fatalf("expected 1 creation, got %d", len(repo.created))
	}
	c := repo.created[0]
	if c.Icon != domain.IconUnknown {
		t.Errorf("Icon = %q, want %q", c.Icon, domain.IconUnknown)
	}
	if c.Color != domain.DefaultColor {
		t.Errorf("Color = %q, want %q", c.Color, domain.DefaultColor)
	}
	if c.CategoryType != domain.CategoryTypeIncome {
		t.Errorf("CategoryType = %q, want income", c.CategoryType)
	}
	if got[1].CategoryID != nil {
		t.Error("label without new-category flag must stay uncategorized")
	}
}

func TestReconcile_FailedCreationStillMaterializes(t *testing.T) {
	catRepo := &mockCategoryRepo{
		CreateCategoryFunc: func(ctx context.Context, c *domain.Category) error {
			return errors.New("permission denied")
		},
	}
	txRepo := &mockTransactionRepo{}
	items := []domain.LineItem{
		{Name: "Vet", Amount: 50000, Date: testToday, CategoryLabel: "Pets", IsNewCategory: true},
		{Name: "Taxi", Amount: 12000, Date: testToday, CategoryLabel: "Transport"},
	}

	ctx := testContext()
	reconciled := NewReconciler(catRepo).Reconcile(ctx, "user-1", items, NewCatalog(domain.DefaultCategories()), NewCategoryCache{})
	res := NewMaterializer(txRepo).Materialize(ctx, "user-1", reconciled)

	if res.Succeeded != 2 || res.Attempted != 2 {
		t.Fatalf("Result = %+v, want 2/2", res)
	}
	if txRepo.inserted[0].CategoryID != nil {
		t.Errorf("Vet should be uncategorized, got %v", *txRepo.inserted[0].CategoryID)
	}
	if id := txRepo.inserted[1].CategoryID; id == nil || !strings.HasPrefix(*id, "default-") {
		t.Errorf("Taxi should keep the default category, got %v", id)
	}
}

func TestResolve_DropsUnknownCategoryID(t *testing.T) {
	catalog := NewCatalog(domain.DefaultCategories())
	foreign := "someone-elses-category"
	known := "default-health"
	items := []domain.LineItem{
		{Name: "A", Amount: 1, CategoryID: &foreign, CategoryLabel: "Cafe"},
		{Name: "B", Amount: 1, CategoryID: &foreign},
		{Name: "C", Amount: 1, CategoryID: &known, CategoryLabel: "Food"},
	}

	got := Resolve(items, catalog)

	if got[0].CategoryID == nil || *got[0].CategoryID != "default-cafe" {
		t.Errorf("item A should fall back to label matching, got %v", got[0].CategoryID)
	}
	if got[1].CategoryID != nil {
		t.Errorf("item B should be uncategorized, got %v", *got[1].CategoryID)
	}
	if got[2].CategoryID == nil || *got[2].CategoryID != known {
		t.Errorf("a user-chosen known category must win over the label, got %v", got[2].CategoryID)
	}
}
