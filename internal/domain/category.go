package domain

import (
	"strings"
	"time"
)

// CategoryType says which kind of transaction a category may label.
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
	CategoryTypeBoth    CategoryType = "both"
)

// ParseCategoryType maps free text onto a CategoryType, defaulting to expense.
func ParseCategoryType(s string) CategoryType {
	switch CategoryType(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryTypeIncome:
		return CategoryTypeIncome
	case CategoryTypeBoth:
		return CategoryTypeBoth
	default:
		return CategoryTypeExpense
	}
}

// Accepts reports whether transactions of type t may use this category type.
func (c CategoryType) Accepts(t TransactionType) bool {
	if c == CategoryTypeBoth || c == "" {
		return true
	}
	return string(c) == string(t)
}

// Category is a label visible to one owner. A nil OwnerID marks a system default.
type Category struct {
	ID           string       `json:"id"`
	OwnerID      *string      `json:"ownerId"`
	Name         string       `json:"name"`
	Icon         Icon         `json:"icon"`
	Color        string       `json:"color"`
	IsDefault    bool         `json:"isDefault"`
	CategoryType CategoryType `json:"categoryType"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// NormalizeName is the key used for case-insensitive category lookups.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DefaultColor is used for categories created without a suggested color.
const DefaultColor = "hsl(0, 0%, 50%)"

// defaultCategories are seeded once and shared by every owner.
var defaultCategories = []Category{
	{ID: "default-food", Name: "Food", Icon: IconUtensils, Color: "hsl(0, 84%, 60%)", CategoryType: CategoryTypeExpense},
	{ID: "default-transport", Name: "Transport", Icon: IconCar, Color: "hsl(25, 95%, 53%)", CategoryType: CategoryTypeExpense},
	{ID: "default-cafe", Name: "Cafe", Icon: IconCoffee, Color: "hsl(30, 41%, 41%)", CategoryType: CategoryTypeExpense},
	{ID: "default-shopping", Name: "Shopping", Icon: IconShoppingBag, Color: "hsl(280, 68%, 47%)", CategoryType: CategoryTypeExpense},
	{ID: "default-leisure", Name: "Leisure", Icon: IconFilm, Color: "hsl(221, 83%, 53%)", CategoryType: CategoryTypeExpense},
	{ID: "default-health", Name: "Health", Icon: IconHeart, Color: "hsl(142, 71%, 45%)", CategoryType: CategoryTypeExpense},
	{ID: "default-housing", Name: "Housing", Icon: IconHome, Color: "hsl(186, 94%, 37%)", CategoryType: CategoryTypeExpense},
	{ID: "default-utilities", Name: "Utilities", Icon: IconZap, Color: "hsl(48, 96%, 53%)", CategoryType: CategoryTypeExpense},

	{ID: "default-salary", Name: "Salary", Icon: IconBanknote, Color: "hsl(142, 71%, 45%)", CategoryType: CategoryTypeIncome},
	{ID: "default-allowance", Name: "Allowance", Icon: IconGift, Color: "hsl(280, 68%, 47%)", CategoryType: CategoryTypeIncome},
	{ID: "default-interest", Name: "Interest", Icon: IconTrendingUp, Color: "hsl(221, 83%, 53%)", CategoryType: CategoryTypeIncome},
	{ID: "default-other-income", Name: "Other Income", Icon: IconPlus, Color: "hsl(186, 94%, 37%)", CategoryType: CategoryTypeIncome},
}

// DefaultCategories returns a fresh copy of the system default categories.
func DefaultCategories() []Category {
	out := make([]Category, len(defaultCategories))
	for i, c := range defaultCategories {
		c.IsDefault = true
		out[i] = c
	}
	return out
}
