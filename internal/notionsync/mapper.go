package notionsync

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/jomei/notionapi"
)

// Notion database column names.
const (
	propName          = "Name"
	propDate          = "Date"
	propAmount        = "Amount"
	propType          = "Type"
	propCategory      = "Category"
	propAIProcessed   = "AI Processed"
	propReceipt       = "Receipt"
	propTransactionID = "Transaction ID"
	propOwner         = "User ID"
)

// uncategorized is the Category option for transactions without one.
const uncategorized = "Uncategorized"

// TransactionProperties maps a transaction onto Notion page properties.
// categoryNames resolves category IDs to display names.
func TransactionProperties(tx domain.Transaction, categoryNames map[string]string) notionapi.Properties {
	date := notionapi.Date(tx.Date.In(time.UTC))

	category := uncategorized
	if tx.CategoryID != nil {
		if name, ok := categoryNames[*tx.CategoryID]; ok {
			category = name
		}
	}

	props := notionapi.Properties{
		propName: notionapi.TitleProperty{
			Title: []notionapi.RichText{textRun(tx.Name)},
		},
		propDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
		propAmount: notionapi.NumberProperty{Number: tx.Amount},
		propType: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(domain.ParseTransactionType(string(tx.TransactionType)))},
		},
		propCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: category},
		},
		propAIProcessed: notionapi.CheckboxProperty{Checkbox: tx.AIProcessed},
		propTransactionID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{textRun(tx.ID)},
		},
		propOwner: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{textRun(tx.OwnerID)},
		},
	}

	if tx.ReceiptURL != nil && *tx.ReceiptURL != "" {
		props[propReceipt] = notionapi.URLProperty{URL: *tx.ReceiptURL}
	}

	return props
}

func textRun(s string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}
}

// pageTransactionID reads the Transaction ID column of an exported page.
func pageTransactionID(page notionapi.Page) string {
	return pageText(page, propTransactionID)
}

// pageOwner reads the User ID column of an exported page.
func pageOwner(page notionapi.Page) string {
	return pageText(page, propOwner)
}

func pageText(page notionapi.Page, name string) string {
	if prop, ok := page.Properties[name].(*notionapi.RichTextProperty); ok && len(prop.RichText) > 0 {
		return prop.RichText[0].PlainText
	}
	return ""
}

// pageDate reads the Date column of an exported page.
func pageDate(page notionapi.Page) (civil.Date, bool) {
	prop, ok := page.Properties[propDate].(*notionapi.DateProperty)
	if !ok || prop.Date == nil || prop.Date.Start == nil {
		return civil.Date{}, false
	}
	return civil.DateOf(time.Time(*prop.Date.Start)), true
}
