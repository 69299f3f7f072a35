package agents

import "strings"

// Keyword groups for routing. A query matching only one group goes to that
// group's agent; matching both or neither goes to both agents.
var (
	dealKeywords = []string{
		"deal", "deals", "discount", "promotion", "promo", "sale",
		"coupon", "offer", "offers", "special",
	}
	productKeywords = []string{
		"price", "prices", "cost", "find", "buy", "where", "available",
		"availability", "compare", "brand", "product",
	}
)

// RouteQuery picks which sub-agents should handle the query. General
// queries with no clear signal fan out to both.
func RouteQuery(query string) []Name {
	q := strings.ToLower(query)

	deals := containsAnyWord(q, dealKeywords)
	products := containsAnyWord(q, productKeywords)

	switch {
	case deals && !products:
		return []Name{PromotionsAgentName}
	case products && !deals:
		return []Name{SearchAgentName}
	default:
		return []Name{PromotionsAgentName, SearchAgentName}
	}
}

func containsAnyWord(q string, keywords []string) bool {
	fields := strings.FieldsFunc(q, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	for _, k := range keywords {
		if set[k] {
			return true
		}
	}
	return false
}
