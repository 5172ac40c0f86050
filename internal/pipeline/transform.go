package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/domain"
)

// Rejection explains why one element of the model's items array was not
// turned into a line item.
type Rejection struct {
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// transformItem converts one raw item into a line item. A non-empty reason
// means the item was rejected.
func transformItem(raw interface{}, today civil.Date) (domain.LineItem, string) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return domain.LineItem{}, fmt.Sprintf("item has type %T, want object", raw)
	}

	name, err := getOptionalStringField(obj, "name")
	if err != nil {
		return domain.LineItem{}, err.Error()
	}
	if name == nil {
		return domain.LineItem{}, "missing name"
	}

	amount, err := getAmountField(obj, "amount")
	if err != nil {
		return domain.LineItem{Name: *name}, err.Error()
	}

	item := domain.LineItem{
		Name:            *name,
		Amount:          amount,
		Date:            getDateField(obj, "date", today),
		TransactionType: domain.TransactionTypeExpense,
		IsNewCategory:   getBoolField(obj, "isNewCategory"),
	}

	// Loose fields: a wrong type is treated like an absent value.
	if t, _ := getOptionalStringField(obj, "type"); t != nil {
		item.TransactionType = domain.ParseTransactionType(*t)
	}
	if c, _ := getOptionalStringField(obj, "category"); c != nil {
		item.CategoryLabel = *c
	}
	if ic, _ := getOptionalStringField(obj, "suggestedIcon"); ic != nil {
		item.SuggestedIcon = *ic
	}
	if col, _ := getOptionalStringField(obj, "suggestedColor"); col != nil {
		item.SuggestedColor = *col
	}

	return item, ""
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

// getAmountField accepts a JSON number or a numeric string such as "12,000"
// and requires a finite, strictly positive result.
func getAmountField(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required field %q", key)
	}

	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("field %q is not a number", key)
		}
		f = parsed
	case string:
		cleaned := strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(val))
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q is not a number", key)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("field %q is not a number", key)
	}
	if f <= 0 {
		return 0, fmt.Errorf("field %q must be positive", key)
	}
	return f, nil
}

// getDateField parses YYYY-MM-DD (a trailing time part is ignored) and
// falls back to fallback when the value is absent or unparseable.
func getDateField(m map[string]interface{}, key string, fallback civil.Date) civil.Date {
	s, err := getOptionalStringField(m, key)
	if err != nil || s == nil {
		return fallback
	}
	str := *s
	if len(str) > 10 {
		str = str[:10]
	}
	d, err := civil.ParseDate(str)
	if err != nil || !d.IsValid() {
		return fallback
	}
	return d
}

func getBoolField(m map[string]interface{}, key string) bool {
	switch val := m[key].(type) {
	case bool:
		return val
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(val))
		return b
	default:
		return false
	}
}
