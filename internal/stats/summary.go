// Package stats aggregates transactions into dashboard totals.
package stats

import (
	"sort"

	"github.com/dvloznov/receipt-tracker/internal/domain"
)

// UncategorizedName labels the bucket for transactions without a category.
const UncategorizedName = "Uncategorized"

// CategoryTotal is one row of a per-category breakdown.
type CategoryTotal struct {
	CategoryID *string `json:"categoryId"`
	Name       string  `json:"name"`
	Icon       string  `json:"icon"`
	Color      string  `json:"color"`
	Amount     float64 `json:"amount"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Summary is the income/expense overview for a set of transactions.
type Summary struct {
	Income           float64         `json:"income"`
	Expense          float64         `json:"expense"`
	Balance          float64         `json:"balance"`
	TransactionCount int             `json:"transactionCount"`
	ExpenseBreakdown []CategoryTotal `json:"expenseBreakdown"`
	IncomeBreakdown  []CategoryTotal `json:"incomeBreakdown"`
}

// Summarize totals txs by type and by category. Categories are looked up
// in categories; unknown or missing IDs go to the Uncategorized bucket.
func Summarize(txs []domain.Transaction, categories []domain.Category) Summary {
	byID := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	var s Summary
	expense := make(map[string]*CategoryTotal)
	income := make(map[string]*CategoryTotal)

	for _, tx := range txs {
		s.TransactionCount++
		bucket := expense
		if tx.TransactionType == domain.TransactionTypeIncome {
			s.Income += tx.Amount
			bucket = income
		} else {
			s.Expense += tx.Amount
		}

		key := ""
		if tx.CategoryID != nil {
			if _, ok := byID[*tx.CategoryID]; ok {
				key = *tx.CategoryID
			}
		}

		total, ok := bucket[key]
		if !ok {
			total = newTotal(key, byID)
			bucket[key] = total
		}
		total.Amount += tx.Amount
		total.Count++
	}

	s.Balance = s.Income - s.Expense
	s.ExpenseBreakdown = breakdown(expense, s.Expense)
	s.IncomeBreakdown = breakdown(income, s.Income)
	return s
}

func newTotal(id string, byID map[string]domain.Category) *CategoryTotal {
	if id == "" {
		return &CategoryTotal{
			Name:  UncategorizedName,
			Icon:  string(domain.IconUnknown),
			Color: domain.DefaultColor,
		}
	}
	c := byID[id]
	catID := id
	return &CategoryTotal{
		CategoryID: &catID,
		Name:       c.Name,
		Icon:       string(c.Icon),
		Color:      c.Color,
	}
}

func breakdown(totals map[string]*CategoryTotal, sum float64) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(totals))
	for _, t := range totals {
		if sum > 0 {
			t.Percentage = t.Amount / sum * 100
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}
