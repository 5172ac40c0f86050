package pipeline

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/domain"
)

// BuildPrompt assembles the system and user turns for one analysis request.
func BuildPrompt(vocab Vocabulary, today civil.Date) Prompt {
	return Prompt{
		System: BuildSystemPrompt(vocab, today),
		User:   userInstruction,
	}
}

// BuildSystemPrompt constructs the extraction instructions: output schema,
// category vocabulary, income/expense heuristics and the icon vocabulary.
func BuildSystemPrompt(vocab Vocabulary, today civil.Date) string {
	var b strings.Builder

	b.WriteString("You are an assistant that reads payment screenshots and receipts.\n")
	b.WriteString("Extract EVERY transaction visible in the image. If the image shows several transactions, return all of them.\n\n")

	b.WriteString("For each transaction extract:\n")
	b.WriteString("1. The merchant or item name.\n")
	b.WriteString("2. The amount as a number, always positive.\n")
	b.WriteString("3. The date as YYYY-MM-DD. If no date is visible use today's date: " + today.String() + "\n")
	b.WriteString("4. The transaction type: \"income\" for money received, \"expense\" for money spent.\n")
	b.WriteString("5. The most suitable category.\n\n")

	b.WriteString("Expense categories: " + strings.Join(vocab.Expense, ", ") + "\n")
	b.WriteString("Income categories: " + strings.Join(vocab.Income, ", ") + "\n\n")

	b.WriteString("TRANSACTION TYPE RULES:\n")
	b.WriteString("- Words like \"deposit\", \"received\", \"transfer in\", \"salary\", \"payroll\", \"refund\" mean income.\n")
	b.WriteString("- Words like \"withdrawal\", \"payment\", \"paid\", \"transfer out\", \"purchase\", \"spent\" mean expense.\n")
	b.WriteString("- An amount prefixed with \"+\" or shown in blue or green is income.\n")
	b.WriteString("- An amount prefixed with \"-\" or shown in red is expense.\n\n")

	b.WriteString("CATEGORY RULES:\n")
	b.WriteString("1. Prefer one of the categories listed above, spelled exactly as listed, and set \"isNewCategory\" to false.\n")
	b.WriteString("2. If none fits, propose a short new category name and set \"isNewCategory\" to true.\n")
	b.WriteString("3. For a new category also suggest an icon name from the list below and an HSL color such as \"hsl(200, 70%, 50%)\".\n\n")

	icons := domain.KnownIcons()
	names := make([]string, len(icons))
	for i, ic := range icons {
		names[i] = string(ic)
	}
	b.WriteString("Available icons: " + strings.Join(names, ", ") + "\n\n")

	b.WriteString("Respond with JSON only, in exactly this shape:\n")
	b.WriteString(`{
  "items": [
    {
      "name": "merchant or item name",
      "amount": 0,
      "date": "YYYY-MM-DD",
      "type": "income" or "expense",
      "category": "category name",
      "isNewCategory": false,
      "suggestedIcon": "icon name (new categories only)",
      "suggestedColor": "hsl(h, s%, l%) (new categories only)"
    }
  ]
}`)
	b.WriteString("\n")

	return b.String()
}
