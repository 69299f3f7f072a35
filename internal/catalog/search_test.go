package catalog

import (
	"errors"
	"testing"

	"github.com/cartwise/cartwise/internal/storage"
)

type mockPromotionStore struct {
	promos []storage.Promotion
	err    error

	gotStore string
}

func (m *mockPromotionStore) ListPromotions(store string, limit int) ([]storage.Promotion, error) {
	m.gotStore = store
	if m.err != nil {
		return nil, m.err
	}
	return m.promos, nil
}

func promo(id, store, product, desc, tags string, priceCents int) storage.Promotion {
	return storage.Promotion{
		ID: id, Store: store, Product: product, Description: desc,
		Tags: tags, PriceCents: priceCents, Currency: "USD",
	}
}

func TestSearch_RanksProductHitsAboveDescriptionHits(t *testing.T) {
	store := &mockPromotionStore{promos: []storage.Promotion{
		promo("1", "aldi", "Whole Milk", "fresh dairy", `["dairy"]`, 299),
		promo("2", "aldi", "Cereal", "great with milk", "", 449),
		promo("3", "aldi", "Bananas", "ripe fruit", "", 99),
	}}
	s := NewSearcher(store)

	results, err := s.Search("milk", "", 10)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Promotion.ID != "1" {
		t.Errorf("top result = %s, want 1 (product-name hit)", results[0].Promotion.ID)
	}
	if results[1].Promotion.ID != "2" {
		t.Errorf("second result = %s, want 2 (description hit)", results[1].Promotion.ID)
	}
}

func TestSearch_TagHits(t *testing.T) {
	store := &mockPromotionStore{promos: []storage.Promotion{
		promo("1", "aldi", "Oat Drink", "plant based", `["vegan","dairy-free"]`, 349),
		promo("2", "aldi", "Cheddar", "aged cheese", "", 599),
	}}
	s := NewSearcher(store)

	results, err := s.Search("vegan options", "", 10)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 1 || results[0].Promotion.ID != "1" {
		t.Errorf("results = %+v, want only the tagged promotion", results)
	}
}

func TestSearch_TopKAndStoreFilterPassthrough(t *testing.T) {
	store := &mockPromotionStore{promos: []storage.Promotion{
		promo("1", "aldi", "Milk", "", "", 299),
		promo("2", "aldi", "Milk Chocolate", "", "", 199),
		promo("3", "aldi", "Milkshake", "", "", 399),
	}}
	s := NewSearcher(store)

	results, err := s.Search("milk", "aldi", 2)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want topK=2", len(results))
	}
	if store.gotStore != "aldi" {
		t.Errorf("store filter = %q, want aldi", store.gotStore)
	}
}

func TestSearch_StopwordOnlyQuery(t *testing.T) {
	s := NewSearcher(&mockPromotionStore{promos: []storage.Promotion{
		promo("1", "aldi", "Milk", "", "", 299),
	}})

	results, err := s.Search("can you get me some", "", 10)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results for stopword-only query, want 0", len(results))
	}
}

func TestSearch_StoreError(t *testing.T) {
	s := NewSearcher(&mockPromotionStore{err: errors.New("db locked")})
	if _, err := s.Search("milk", "", 10); err == nil {
		t.Fatal("expected error")
	}
}

func TestDecodeTags(t *testing.T) {
	if got := DecodeTags(`["a","b"]`); len(got) != 2 {
		t.Errorf("DecodeTags = %v", got)
	}
	if got := DecodeTags(""); got != nil {
		t.Errorf("empty tags = %v, want nil", got)
	}
	if got := DecodeTags("not-json"); got != nil {
		t.Errorf("malformed tags = %v, want nil", got)
	}
}
