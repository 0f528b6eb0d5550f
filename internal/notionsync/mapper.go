package notionsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the mirrored transactions database.
const (
	propDescription   = "Description"
	propTransactionID = "Transaction ID"
	propUserID        = "User ID"
	propDate          = "Date"
	propAmount        = "Amount"
	propType          = "Type"
	propCategory      = "Category"
	propPaymentMethod = "Payment Method"
	propTemplateID    = "Template ID"
	propDetails       = "Details"
	propUpdatedAt     = "Updated At"
)

// maxRichText is the Notion limit for a single rich text content block.
const maxRichText = 2000

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: truncate(s, maxRichText)}},
	}
}

// truncate cuts s to at most n bytes on a rune boundary, marking the cut
// with an ellipsis.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for i := range s {
		if i > n-3 {
			break
		}
		cut = i
	}
	return s[:cut] + "..."
}

func dateProp(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

// FormatDetails renders custom fields as "key: value" lines in key order.
func FormatDetails(c domain.CustomFields) string {
	if len(c) == 0 {
		return ""
	}
	lines := make([]string, 0, len(c))
	for _, k := range c.Keys() {
		lines = append(lines, fmt.Sprintf("%s: %v", k, c[k]))
	}
	return strings.Join(lines, "\n")
}

// TransactionToNotionProperties maps a transaction to page properties.
// Empty optional select and template fields are omitted.
func TransactionToNotionProperties(tx *domain.Transaction) notionapi.Properties {
	title := tx.Description
	if title == "" {
		title = tx.Category
	}

	amount, _ := tx.Amount.Float64()

	props := notionapi.Properties{
		propDescription:   notionapi.TitleProperty{Title: richText(title)},
		propTransactionID: notionapi.RichTextProperty{RichText: richText(tx.ID)},
		propUserID:        notionapi.RichTextProperty{RichText: richText(tx.UserID)},
		propDate:          dateProp(tx.Date.In(time.UTC)),
		propAmount:        notionapi.NumberProperty{Number: amount},
		propDetails:       notionapi.RichTextProperty{RichText: richText(FormatDetails(tx.CustomFields))},
		propUpdatedAt:     dateProp(tx.UpdatedAt.UTC()),
	}

	if tx.Type != "" {
		props[propType] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Type}}
	}
	if tx.Category != "" {
		props[propCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Category}}
	}
	if tx.PaymentMethod != "" {
		props[propPaymentMethod] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.PaymentMethod}}
	}
	if tx.TemplateID != "" {
		props[propTemplateID] = notionapi.RichTextProperty{RichText: richText(tx.TemplateID)}
	}

	return props
}

func richTextValue(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok {
		return ""
	}
	var parts []notionapi.RichText
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		parts = p.RichText
	case notionapi.RichTextProperty:
		parts = p.RichText
	}
	var b strings.Builder
	for _, rt := range parts {
		if rt.PlainText != "" {
			b.WriteString(rt.PlainText)
		} else if rt.Text != nil {
			b.WriteString(rt.Text.Content)
		}
	}
	return b.String()
}

func dateValue(page notionapi.Page, name string) (time.Time, bool) {
	prop, ok := page.Properties[name]
	if !ok {
		return time.Time{}, false
	}
	var obj *notionapi.DateObject
	switch p := prop.(type) {
	case *notionapi.DateProperty:
		obj = p.Date
	case notionapi.DateProperty:
		obj = p.Date
	}
	if obj == nil || obj.Start == nil {
		return time.Time{}, false
	}
	return time.Time(*obj.Start), true
}

// extractTransactionID returns the Transaction ID of a page, or "".
func extractTransactionID(page notionapi.Page) string {
	return richTextValue(page, propTransactionID)
}

func extractUserID(page notionapi.Page) string {
	return richTextValue(page, propUserID)
}

// upToDate reports whether the page already mirrors the transaction's last
// update. Notion keeps millisecond precision; the comparison is per second.
func upToDate(page notionapi.Page, tx *domain.Transaction) bool {
	t, ok := dateValue(page, propUpdatedAt)
	if !ok {
		return false
	}
	return t.Truncate(time.Second).Equal(tx.UpdatedAt.Truncate(time.Second))
}
