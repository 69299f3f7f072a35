package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/cartwise/cartwise/internal/storage"
)

// ParseFlyer extracts promotion rows from a store flyer page. A promotion
// is any element whose class list contains "promotion"; within it, child
// elements classed "product", "price", "description", and "tags" carry the
// fields, and a data-ends attribute carries the end date (2006-01-02).
func ParseFlyer(r io.Reader, store string, now time.Time) ([]storage.Promotion, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing flyer html: %w", err)
	}

	var promos []storage.Promotion
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "promotion") {
			if p, ok := extractPromotion(n, store, now); ok {
				promos = append(promos, p)
			}
			return // promotions do not nest
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return promos, nil
}

func extractPromotion(n *html.Node, store string, now time.Time) (storage.Promotion, bool) {
	product := strings.TrimSpace(textOfClass(n, "product"))
	if product == "" {
		return storage.Promotion{}, false
	}

	p := storage.Promotion{
		ID:          uuid.NewString(),
		Store:       store,
		Product:     product,
		Description: strings.TrimSpace(textOfClass(n, "description")),
		Currency:    "USD",
		CreatedAt:   now.UTC(),
		Source:      "flyer",
	}

	if priceText := textOfClass(n, "price"); priceText != "" {
		p.PriceCents = parsePriceCents(priceText)
	}
	if tagsText := strings.TrimSpace(textOfClass(n, "tags")); tagsText != "" {
		var tags []string
		for _, t := range strings.Split(tagsText, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		p.Tags = encodeTags(tags)
	}
	if ends := attrValue(n, "data-ends"); ends != "" {
		if t, err := time.Parse("2006-01-02", ends); err == nil {
			p.EndsAt = t
		}
	}
	return p, true
}

var priceRe = regexp.MustCompile(`(\d+)[.,](\d{2})`)

// parsePriceCents reads the first decimal amount in the text. Returns 0
// when no amount is present.
func parsePriceCents(text string) int {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	whole, _ := strconv.Atoi(m[1])
	frac, _ := strconv.Atoi(m[2])
	return whole*100 + frac
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attrValue(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textOfClass returns the concatenated text of the first descendant with
// the given class.
func textOfClass(n *html.Node, class string) string {
	var found *html.Node
	var find func(*html.Node)
	find = func(node *html.Node) {
		if found != nil {
			return
		}
		if node != n && node.Type == html.ElementNode && hasClass(node, class) {
			found = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	if found == nil {
		return ""
	}
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(found)
	return b.String()
}
