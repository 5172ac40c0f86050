package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/dvloznov/receipt-tracker/internal/logger"
	"github.com/dvloznov/receipt-tracker/internal/stats"
)

func TestStatsSummary(t *testing.T) {
	food := "default-food"
	txs := &mockTransactionRepo{ListTransactionsFunc: func(ctx context.Context, userID string, start, end civil.Date) ([]domain.Transaction, error) {
		if start.String() != "2024-02-01" || end.String() != "2024-02-29" {
			t.Errorf("range = %s..%s", start, end)
		}
		return []domain.Transaction{
			{Name: "Lunch", Amount: 9000, TransactionType: domain.TransactionTypeExpense, CategoryID: &food},
			{Name: "Salary", Amount: 100000, TransactionType: domain.TransactionTypeIncome},
		}, nil
	}}
	h := NewStatsHandler(&mockCategoryRepo{}, txs, logger.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats/summary?start_date=2024-02-01&end_date=2024-02-29", nil)
	h.Summary(rec, withUser(req, testUser))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Summary stats.Summary `json:"summary"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	s := body.Summary
	if s.Income != 100000 || s.Expense != 9000 || s.Balance != 91000 {
		t.Errorf("unexpected totals %+v", s)
	}
	if len(s.ExpenseBreakdown) != 1 || s.ExpenseBreakdown[0].Name != "Food" {
		t.Errorf("ExpenseBreakdown = %+v", s.ExpenseBreakdown)
	}
	if len(s.IncomeBreakdown) != 1 || s.IncomeBreakdown[0].Name != stats.UncategorizedName {
		t.Errorf("IncomeBreakdown = %+v", s.IncomeBreakdown)
	}
}
