package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/domain"
)

// Extraction is the normalized result of one model reply.
type Extraction struct {
	Items    []domain.LineItem `json:"items"`
	Rejected []Rejection       `json:"rejected,omitempty"`
}

// ParseModelResponse recovers line items from free-form model text.
//
// The reply may wrap its JSON in a Markdown fence and surround it with prose.
// Only the first balanced JSON object is considered. A reply carrying a single
// item at the top level (no "items" key but a "name") is treated as a
// one-element list. Items with a missing name or a non-positive amount are
// returned in Rejected; missing or invalid dates become today.
func ParseModelResponse(raw string, today civil.Date) (*Extraction, error) {
	candidate, ok := findFirstJSONObject(stripCodeFence(raw))
	if !ok {
		candidate, ok = findFirstJSONObject(raw)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(candidate)))
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	itemsAny, hasItems := payload["items"]
	if !hasItems {
		if _, hasName := payload["name"]; !hasName {
			return nil, fmt.Errorf("%w: missing 'items' key", ErrMalformedResponse)
		}
		itemsAny = []interface{}{payload}
	}

	var rawItems []interface{}
	switch v := itemsAny.(type) {
	case nil:
	case []interface{}:
		rawItems = v
	default:
		return nil, fmt.Errorf("%w: 'items' is %T, want array", ErrMalformedResponse, itemsAny)
	}

	out := &Extraction{Items: make([]domain.LineItem, 0, len(rawItems))}
	for i, raw := range rawItems {
		item, reason := transformItem(raw, today)
		if reason != "" {
			out.Rejected = append(out.Rejected, Rejection{Index: i, Name: item.Name, Reason: reason})
			continue
		}
		out.Items = append(out.Items, item)
	}

	return out, nil
}

// stripCodeFence returns the content of the first ``` or ```json fence, or
// the trimmed input when there is no closed fence.
func stripCodeFence(s string) string {
	open := strings.Index(s, "```")
	if open < 0 {
		return strings.TrimSpace(s)
	}
	rest := s[open+3:]
	if len(rest) >= 4 && strings.EqualFold(rest[:4], "json") {
		rest = rest[4:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(rest[:end])
}

// findFirstJSONObject returns the first balanced {...} in s. Braces inside
// string literals are ignored and backslash escapes are honored.
func findFirstJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if start < 0 {
			if ch == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
