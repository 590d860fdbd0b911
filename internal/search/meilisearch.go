// Package search keeps a Meilisearch index of listings for free-text lookup.
// The index only resolves ids; callers load the rows from the store so the
// blacklist and derived fields apply as usual.
package search

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"property-pipeline/internal/models"
)

// DefaultIndex is the index uid used when none is configured.
const DefaultIndex = "listings"

// DefaultLimit caps a search when the caller passes no limit.
const DefaultLimit = 20

// Document is the indexed projection of a listing.
type Document struct {
	ID         int64    `json:"id"`
	Address    string   `json:"address"`
	AddressKey string   `json:"address_key"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	Zip        string   `json:"zip,omitempty"`
	Status     string   `json:"status,omitempty"`
	MLSNumber  string   `json:"mls_number,omitempty"`
	MLSType    string   `json:"mls_type,omitempty"`
	Style      string   `json:"style,omitempty"`
	Price      *float64 `json:"price,omitempty"`
	Beds       *float64 `json:"beds,omitempty"`
	RentYield  *float64 `json:"rent_yield,omitempty"`
	WalkScore  *float64 `json:"walk_score,omitempty"`

	PriceCategory     string `json:"price_category,omitempty"`
	WalkScoreCategory string `json:"walk_score_category,omitempty"`
	YieldCategory     string `json:"yield_category,omitempty"`
}

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = DefaultIndex
	}

	return &SearchClient{
		client: client,
		index:  index,
	}
}

// InitIndex creates the index and configures its attributes
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create index %s: %w", s.index, err)
	}

	idx := s.client.Index(s.index)

	if _, err := idx.UpdateSearchableAttributes(&[]string{
		"address",
		"city",
		"zip",
		"mls_number",
		"mls_type",
		"style",
		"status",
		"state",
	}); err != nil {
		return fmt.Errorf("failed to set searchable attributes: %w", err)
	}

	if _, err := idx.UpdateFilterableAttributes(&[]string{
		"address_key",
		"city",
		"price_category",
		"yield_category",
		"status",
		"price",
		"beds",
	}); err != nil {
		return fmt.Errorf("failed to set filterable attributes: %w", err)
	}

	if _, err := idx.UpdateSortableAttributes(&[]string{
		"price",
		"rent_yield",
		"walk_score",
	}); err != nil {
		return fmt.Errorf("failed to set sortable attributes: %w", err)
	}

	return nil
}

// IndexListings adds or replaces the documents for listings
func (s *SearchClient) IndexListings(listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	docs := make([]Document, len(listings))
	for i := range listings {
		docs[i] = ToDocument(&listings[i])
	}
	if _, err := s.client.Index(s.index).AddDocuments(docs, "id"); err != nil {
		return fmt.Errorf("failed to index %d listings: %w", len(docs), err)
	}
	log.Printf("[Search] indexed=%d index=%s", len(docs), s.index)
	return nil
}

// Reindex replaces the whole index content with listings
func (s *SearchClient) Reindex(listings []models.Listing) error {
	if _, err := s.client.Index(s.index).DeleteAllDocuments(); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	return s.IndexListings(listings)
}

// SearchIDs returns the ids of the best matches for query, best first.
func (s *SearchClient) SearchIDs(query string, limit int64) ([]int64, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	res, err := s.client.Index(s.index).Search(query, &meilisearch.SearchRequest{
		Limit:                limit,
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return IDsFromHits(res.Hits)
}

// DeleteByAddress removes every document whose address matches address
// case-insensitively.
func (s *SearchClient) DeleteByAddress(address string) error {
	key := models.NormalizeAddress(address)
	if key == "" {
		return nil
	}
	idx := s.client.Index(s.index)
	res, err := idx.Search("", &meilisearch.SearchRequest{
		Filter:               AddressFilter(key),
		AttributesToRetrieve: []string{"id"},
		Limit:                1000,
	})
	if err != nil {
		return fmt.Errorf("lookup %q: %w", address, err)
	}
	ids, err := IDsFromHits(res.Hits)
	if err != nil || len(ids) == 0 {
		return err
	}

	uids := make([]string, len(ids))
	for i, id := range ids {
		uids[i] = strconv.FormatInt(id, 10)
	}
	if _, err := idx.DeleteDocuments(uids); err != nil {
		return fmt.Errorf("delete %q: %w", address, err)
	}
	log.Printf("[Search] removed=%d address=%q", len(uids), address)
	return nil
}

// ToDocument projects a listing into its index document.
func ToDocument(l *models.Listing) Document {
	return Document{
		ID:         l.ID,
		Address:    l.Address,
		AddressKey: l.NormalizedAddress(),
		City:       deref(l.City),
		State:      deref(l.State),
		Zip:        deref(l.Zip),
		Status:     deref(l.Status),
		MLSNumber:  deref(l.MLSNumber),
		MLSType:    deref(l.MLSType),
		Style:      deref(l.Style),
		Price:      l.Price.Ptr(),
		Beds:       l.Beds.Ptr(),
		RentYield:  l.RentYield.Ptr(),
		WalkScore:  l.WalkScore.Ptr(),

		PriceCategory:     l.PriceCategory,
		WalkScoreCategory: l.WalkScoreCategory,
		YieldCategory:     l.YieldCategory,
	}
}

// AddressFilter builds the filter expression matching a normalized address.
func AddressFilter(key string) string {
	escaped := strings.ReplaceAll(key, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return fmt.Sprintf(`address_key = "%s"`, escaped)
}

var errBadHit = errors.New("search hit without numeric id")

// IDsFromHits extracts document ids from raw search hits, keeping order.
func IDsFromHits(hits []interface{}) ([]int64, error) {
	ids := make([]int64, 0, len(hits))
	for _, hit := range hits {
		m, ok := hit.(map[string]interface{})
		if !ok {
			return nil, errBadHit
		}
		switch v := m["id"].(type) {
		case float64:
			ids = append(ids, int64(v))
		case string:
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", errBadHit, v)
			}
			ids = append(ids, id)
		default:
			return nil, errBadHit
		}
	}
	return ids, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
