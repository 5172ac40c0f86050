package pipeline

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/domain"
)

func TestMaterialize_PartialSuccess(t *testing.T) {
	repo := &mockTransactionRepo{
		InsertTransactionFunc: func(ctx context.Context, tx *domain.Transaction) error {
			if tx.Name == "Broken" {
				return errors.New("insert failed")
			}
			return nil
		},
	}
	m := NewMaterializer(repo)
	items := []domain.LineItem{
		{Name: "One", Amount: 1, Date: testToday},
		{Name: "Broken", Amount: 2, Date: testToday},
		{Name: "Three", Amount: 3, Date: testToday},
	}

	res := m.Materialize(testContext(), "user-1", items)

	if res.Succeeded != 2 || res.Attempted != 3 {
		t.Errorf("Result = %+v, want 2 of 3", res)
	}
	if err := res.Err(); err != nil {
		t.Errorf("partial success should not be an error, got %v", err)
	}
}

func TestMaterialize_AllFail(t *testing.T) {
	repo := &mockTransactionRepo{
		InsertTransactionFunc: func(ctx context.Context, tx *domain.Transaction) error {
			return errors.New("insert failed")
		},
	}
	res := NewMaterializer(repo).Materialize(testContext(), "user-1", []domain.LineItem{{Name: "X", Amount: 1}})

	if !errors.Is(res.Err(), ErrNothingMaterialized) {
		t.Errorf("expected ErrNothingMaterialized, got %v", res.Err())
	}
}

func TestMaterialize_EmptyBatchIsNotFailure(t *testing.T) {
	res := NewMaterializer(&mockTransactionRepo{}).Materialize(testContext(), "user-1", nil)
	if res.Attempted != 0 || res.Err() != nil {
		t.Errorf("unexpected result %+v err %v", res, res.Err())
	}
}

func TestMaterialize_TransactionFields(t *testing.T) {
	repo := &mockTransactionRepo{}
	m := NewMaterializer(repo)
	m.today = func() civil.Date { return testToday }

	catID := "default-food"
	receipt := "gs://bucket/receipts/user-1/r1.png"
	items := []domain.LineItem{
		{Name: "  Groceries ", Amount: 42.5, CategoryID: &catID},
		{Name: "Refund", Amount: 10, TransactionType: domain.TransactionTypeIncome, Date: civil.Date{Year: 2024, Month: 1, Day: 2}},
		{Name: "Bad", Amount: -1},
	}

	res := m.MaterializeReceipt(testContext(), "user-1", items, &receipt)

	if res.Succeeded != 2 || res.Attempted != 3 {
		t.Fatalf("Result = %+v, want 2 of 3", res)
	}

	first := repo.inserted[0]
	if first.OwnerID != "user-1" || !first.AIProcessed {
		t.Errorf("owner/aiProcessed not set: %+v", first)
	}
	if first.Name != "Groceries" {
		t.Errorf("Name = %q", first.Name)
	}
	if first.Date != testToday {
		t.Errorf("Date = %v, want fallback %v", first.Date, testToday)
	}
	if first.TransactionType != domain.TransactionTypeExpense {
		t.Errorf("TransactionType = %q, want expense", first.TransactionType)
	}
	if first.CategoryID == nil || *first.CategoryID != catID {
		t.Errorf("CategoryID = %v", first.CategoryID)
	}
	if first.ReceiptURL == nil || *first.ReceiptURL != receipt {
		t.Errorf("ReceiptURL = %v", first.ReceiptURL)
	}

	second := repo.inserted[1]
	if second.TransactionType != domain.TransactionTypeIncome || second.Date.Day != 2 {
		t.Errorf("unexpected second transaction %+v", second)
	}
}
