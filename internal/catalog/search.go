package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cartwise/cartwise/internal/storage"
)

// PromotionStore defines the storage operations Search needs.
// Implemented by storage.Store.
type PromotionStore interface {
	ListPromotions(store string, limit int) ([]storage.Promotion, error)
}

// ScoredPromotion pairs a promotion with its lexical relevance score.
type ScoredPromotion struct {
	Promotion storage.Promotion
	Score     float32
}

// Searcher performs lexical search over stored promotions. Scoring is
// token overlap between the query and the promotion's product, description,
// and tags. Tag hits weigh more than description hits.
type Searcher struct {
	store PromotionStore
}

func NewSearcher(store PromotionStore) *Searcher {
	return &Searcher{store: store}
}

// scanLimit caps how many promotions one search scans. Promotions expire,
// so the table stays small enough for a full scan.
const scanLimit = 1000

// Search returns the topK promotions most relevant to the query,
// optionally restricted to one store. Promotions with zero overlap are
// excluded.
func (s *Searcher) Search(query, store string, topK int) ([]ScoredPromotion, error) {
	promos, err := s.store.ListPromotions(store, scanLimit)
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var results []ScoredPromotion
	for _, p := range promos {
		score := scorePromotion(terms, p)
		if score <= 0 {
			continue
		}
		results = append(results, ScoredPromotion{Promotion: p, Score: score})
	}

	sortByScore(results)
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// scorePromotion counts query term hits: 2 points per product-name hit,
// 2 per tag hit, 1 per description hit, normalized by term count.
func scorePromotion(terms []string, p storage.Promotion) float32 {
	product := strings.ToLower(p.Product)
	desc := strings.ToLower(p.Description)

	tags := DecodeTags(p.Tags)

	var hits float32
	for _, term := range terms {
		if strings.Contains(product, term) {
			hits += 2
		}
		for _, tag := range tags {
			if strings.Contains(strings.ToLower(tag), term) {
				hits += 2
				break
			}
		}
		if strings.Contains(desc, term) {
			hits++
		}
	}
	return hits / float32(len(terms))
}

// DecodeTags parses the JSON tag array stored on a promotion. Malformed
// or empty tag text yields nil.
func DecodeTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}

// stopwords are query tokens that carry no product signal.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "i": true, "me": true,
	"my": true, "for": true, "to": true, "of": true, "in": true,
	"on": true, "at": true, "is": true, "are": true, "some": true,
	"need": true, "want": true, "find": true, "buy": true, "get": true,
	"looking": true, "please": true, "can": true, "you": true,
}

func tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '-'
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// sortByScore sorts ScoredPromotions by Score descending. Used for small
// slices (topK).
func sortByScore(results []ScoredPromotion) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}
