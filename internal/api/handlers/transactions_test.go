package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/receipt-tracker/internal/bigquery"
	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/dvloznov/receipt-tracker/internal/logger"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return withUser(req, testUser)
}

func TestCreateBatch(t *testing.T) {
	cats := &mockCategoryRepo{}
	txs := &mockTransactionRepo{}
	h := NewTransactionsHandler(cats, txs, "receipts-bucket", logger.Nop())

	body := `{
		"items": [
			{"name": "Netflix", "amount": 17000, "date": "2024-03-01", "type": "expense", "category": "Subscriptions", "isNewCategory": true, "suggestedIcon": "tv"},
			{"name": "Spotify", "amount": 11000, "category": "subscriptions", "isNewCategory": true},
			{"name": "Taxi", "amount": 12000, "date": "2024-03-02", "category": "Transport"}
		],
		"receiptUrl": "gs://receipts-bucket/receipts/user-1/r1.png"
	}`

	rec := httptest.NewRecorder()
	h.CreateBatch(rec, jsonRequest(http.MethodPost, "/api/transactions/batch", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Succeeded int `json:"succeeded"`
		Attempted int `json:"attempted"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Succeeded != 3 || res.Attempted != 3 {
		t.Errorf("result = %+v, want 3/3", res)
	}

	if len(cats.created) != 1 || cats.created[0].Name != "Subscriptions" {
		t.Fatalf("expected a single Subscriptions category, got %+v", cats.created)
	}
	if len(txs.inserted) != 3 {
		t.Fatalf("inserted = %d", len(txs.inserted))
	}
	for i, tx := range txs.inserted[:2] {
		if tx.CategoryID == nil || *tx.CategoryID != cats.created[0].ID {
			t.Errorf("tx %d: CategoryID = %v", i, tx.CategoryID)
		}
	}
	taxi := txs.inserted[2]
	if taxi.CategoryID == nil || *taxi.CategoryID != "default-transport" {
		t.Errorf("Taxi CategoryID = %v", taxi.CategoryID)
	}
	if taxi.Date != (civil.Date{Year: 2024, Month: time.March, Day: 2}) {
		t.Errorf("Taxi Date = %v", taxi.Date)
	}
	for _, tx := range txs.inserted {
		if !tx.AIProcessed || tx.OwnerID != testUser {
			t.Errorf("unexpected transaction %+v", tx)
		}
		if tx.ReceiptURL == nil || *tx.ReceiptURL != "gs://receipts-bucket/receipts/user-1/r1.png" {
			t.Errorf("ReceiptURL = %v", tx.ReceiptURL)
		}
	}
}

func TestCreateBatch_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"invalid json", `{"items": [`, http.StatusBadRequest},
		{"no items", `{"items": []}`, http.StatusBadRequest},
		{"blank name", `{"items": [{"name": "  ", "amount": 10}]}`, http.StatusBadRequest},
		{"zero amount", `{"items": [{"name": "Tea", "amount": 0}]}`, http.StatusBadRequest},
		{"bad date", `{"items": [{"name": "Tea", "amount": 1, "date": "01/03/2024"}]}`, http.StatusBadRequest},
		{"bad type", `{"items": [{"name": "Tea", "amount": 1, "type": "transfer"}]}`, http.StatusBadRequest},
		{"foreign receipt", `{"items": [{"name": "Tea", "amount": 1}], "receiptUrl": "gs://receipts-bucket/receipts/user-2/r.png"}`, http.StatusBadRequest},
		{"other bucket", `{"items": [{"name": "Tea", "amount": 1}], "receiptUrl": "gs://elsewhere/receipts/user-1/r.png"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := &mockTransactionRepo{}
			h := NewTransactionsHandler(&mockCategoryRepo{}, txs, "receipts-bucket", logger.Nop())

			rec := httptest.NewRecorder()
			h.CreateBatch(rec, jsonRequest(http.MethodPost, "/api/transactions/batch", tt.body))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if len(txs.inserted) != 0 {
				t.Error("nothing should be inserted")
			}
		})
	}
}

func TestCreateBatch_AllInsertsFail(t *testing.T) {
	txs := &mockTransactionRepo{InsertTransactionFunc: func(ctx context.Context, tx *domain.Transaction) error {
		return errors.New("bigquery unavailable")
	}}
	h := NewTransactionsHandler(&mockCategoryRepo{}, txs, "", logger.Nop())

	rec := httptest.NewRecorder()
	h.CreateBatch(rec, jsonRequest(http.MethodPost, "/api/transactions/batch", `{"items": [{"name": "Tea", "amount": 3}]}`))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCreateBatch_CatalogUnavailable(t *testing.T) {
	cats := &mockCategoryRepo{ListCategoriesFunc: func(ctx context.Context, userID string) ([]domain.Category, error) {
		return nil, errors.New("bigquery unavailable")
	}}
	txs := &mockTransactionRepo{}
	h := NewTransactionsHandler(cats, txs, "", logger.Nop())

	rec := httptest.NewRecorder()
	h.CreateBatch(rec, jsonRequest(http.MethodPost, "/api/transactions/batch",
		`{"items": [{"name": "Kibble", "amount": 20, "category": "Pets", "isNewCategory": true}]}`))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if len(cats.created) != 0 || len(txs.inserted) != 0 {
		t.Errorf("nothing should be written: %d categories, %d transactions", len(cats.created), len(txs.inserted))
	}
}

func TestListTransactions_DefaultRange(t *testing.T) {
	var gotStart, gotEnd civil.Date
	txs := &mockTransactionRepo{ListTransactionsFunc: func(ctx context.Context, userID string, start, end civil.Date) ([]domain.Transaction, error) {
		gotStart, gotEnd = start, end
		return nil, nil
	}}
	h := NewTransactionsHandler(&mockCategoryRepo{}, txs, "", logger.Nop())
	h.now = func() time.Time { return time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	h.ListTransactions(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/transactions", nil), testUser))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %s, want []", rec.Body.String())
	}
	if gotStart.String() != "2024-03-01" || gotEnd.String() != "2024-03-15" {
		t.Errorf("range = %s..%s", gotStart, gotEnd)
	}
}

func TestListTransactions_BadRange(t *testing.T) {
	h := NewTransactionsHandler(&mockCategoryRepo{}, &mockTransactionRepo{}, "", logger.Nop())

	for _, q := range []string{"start_date=2024-13-01", "end_date=yesterday", "start_date=2024-03-10&end_date=2024-03-01"} {
		rec := httptest.NewRecorder()
		h.ListTransactions(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/transactions?"+q, nil), testUser))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestUpdateTransaction(t *testing.T) {
	var updated *domain.Transaction
	txs := &mockTransactionRepo{UpdateTransactionFunc: func(ctx context.Context, tx *domain.Transaction) error {
		if tx.ID == "missing" {
			return fmt.Errorf("UpdateTransaction: %s: %w", tx.ID, bq.ErrNotFound)
		}
		updated = tx
		return nil
	}}
	h := NewTransactionsHandler(&mockCategoryRepo{}, txs, "", logger.Nop())
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/transactions/{id}", h.UpdateTransaction)

	tests := []struct {
		name       string
		id         string
		body       string
		wantStatus int
	}{
		{"ok", "tx-1", `{"name": "Lunch", "amount": 9000, "type": "expense", "date": "2024-03-01", "categoryId": "default-food"}`, http.StatusOK},
		{"unknown category", "tx-1", `{"name": "Lunch", "amount": 9000, "type": "expense", "date": "2024-03-01", "categoryId": "cat-of-someone-else"}`, http.StatusBadRequest},
		{"missing", "missing", `{"name": "Lunch", "amount": 9000, "type": "expense", "date": "2024-03-01"}`, http.StatusNotFound},
		{"negative amount", "tx-1", `{"name": "Lunch", "amount": -1, "type": "expense", "date": "2024-03-01"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, jsonRequest(http.MethodPut, "/api/transactions/"+tt.id, tt.body))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}

	if updated == nil || updated.ID != "tx-1" || updated.OwnerID != testUser {
		t.Fatalf("unexpected update %+v", updated)
	}
	if updated.CategoryID == nil || *updated.CategoryID != "default-food" {
		t.Errorf("CategoryID = %v", updated.CategoryID)
	}
}

func TestDeleteTransaction(t *testing.T) {
	txs := &mockTransactionRepo{DeleteTransactionFunc: func(ctx context.Context, userID, id string) error {
		if id != "tx-1" || userID != testUser {
			return bq.ErrNotFound
		}
		return nil
	}}
	h := NewTransactionsHandler(&mockCategoryRepo{}, txs, "", logger.Nop())
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/transactions/{id}", h.DeleteTransaction)

	for id, want := range map[string]int{"tx-1": http.StatusNoContent, "tx-2": http.StatusNotFound} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodDelete, "/api/transactions/"+id, nil), testUser))
		if rec.Code != want {
			t.Errorf("%s: status = %d, want %d", id, rec.Code, want)
		}
	}
}
