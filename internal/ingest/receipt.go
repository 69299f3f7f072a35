package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractReceiptItems parses a PDF receipt and returns its item lines.
// Header, total, and payment lines are filtered out; what remains is one
// line per purchased product, fed to the learner as an observation source.
func ExtractReceiptItems(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening receipt %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extracting receipt text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, fmt.Errorf("reading receipt text: %w", err)
	}

	return FilterItemLines(buf.String()), nil
}

// nonItemPrefixes mark receipt lines that are not purchased products.
var nonItemPrefixes = []string{
	"total", "subtotal", "tax", "change", "cash", "card", "credit",
	"debit", "balance", "thank", "receipt", "store", "date", "time",
	"cashier", "member", "savings", "item count", "items sold",
}

// FilterItemLines keeps the lines of a receipt that look like product
// entries: they contain letters plus a price amount and do not start with
// a known non-item prefix.
func FilterItemLines(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 3 || !containsLetter(line) || !priceRe.MatchString(line) {
			continue
		}
		lower := strings.ToLower(line)
		skip := false
		for _, prefix := range nonItemPrefixes {
			if strings.HasPrefix(lower, prefix) {
				skip = true
				break
			}
		}
		if !skip {
			items = append(items, line)
		}
	}
	return items
}

func containsLetter(s string) bool {
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			return true
		}
	}
	return false
}
