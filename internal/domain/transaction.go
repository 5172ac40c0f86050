package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// TransactionType is the direction of money for a transaction.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// ParseTransactionType returns expense for anything that is not clearly income.
func ParseTransactionType(s string) TransactionType {
	if TransactionType(strings.ToLower(strings.TrimSpace(s))) == TransactionTypeIncome {
		return TransactionTypeIncome
	}
	return TransactionTypeExpense
}

// Transaction is a persisted, owner-scoped money movement.
// A nil CategoryID means uncategorized.
type Transaction struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"ownerId"`
	CategoryID      *string         `json:"categoryId"`
	Name            string          `json:"name"`
	Amount          float64         `json:"amount"`
	TransactionType TransactionType `json:"type"`
	Date            civil.Date      `json:"date"`
	ReceiptURL      *string         `json:"receiptUrl,omitempty"`
	AIProcessed     bool            `json:"aiProcessed"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// LineItem is one extracted transaction candidate awaiting confirmation.
// Field names on the wire follow the extraction schema the model is asked for.
type LineItem struct {
	Name            string          `json:"name"`
	Amount          float64         `json:"amount"`
	Date            civil.Date      `json:"date"`
	TransactionType TransactionType `json:"type"`
	CategoryLabel   string          `json:"category"`
	IsNewCategory   bool            `json:"isNewCategory"`
	SuggestedIcon   string          `json:"suggestedIcon,omitempty"`
	SuggestedColor  string          `json:"suggestedColor,omitempty"`
	CategoryID      *string         `json:"categoryId,omitempty"`
}
