package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-pipeline/internal/models"
)

func TestToDocument(t *testing.T) {
	l := models.Listing{
		ID:        7,
		Address:   "  12 Bay St ",
		City:      models.Str("Oakland"),
		MLSNumber: models.Str("ML123"),
		Price:     models.Num(650000),
	}

	doc := ToDocument(&l)
	assert.Equal(t, int64(7), doc.ID)
	assert.Equal(t, "12 bay st", doc.AddressKey)
	assert.Equal(t, "Oakland", doc.City)
	assert.Equal(t, "ML123", doc.MLSNumber)
	require.NotNil(t, doc.Price)
	assert.Equal(t, 650000.0, *doc.Price)
	assert.Nil(t, doc.Beds)
	assert.Empty(t, doc.State)
}

func TestIDsFromHits(t *testing.T) {
	ids, err := IDsFromHits([]interface{}{
		map[string]interface{}{"id": float64(3)},
		map[string]interface{}{"id": "11"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 11}, ids)

	_, err = IDsFromHits([]interface{}{map[string]interface{}{"address": "x"}})
	assert.ErrorIs(t, err, errBadHit)

	_, err = IDsFromHits([]interface{}{"nope"})
	assert.ErrorIs(t, err, errBadHit)
}

func TestAddressFilterEscapes(t *testing.T) {
	assert.Equal(t, `address_key = "1 main st"`, AddressFilter("1 main st"))
	assert.Equal(t, `address_key = "the \"loft\""`, AddressFilter(`the "loft"`))
}

func TestNewSearchClientDefaultsIndex(t *testing.T) {
	assert.Equal(t, DefaultIndex, NewSearchClient("http://localhost:7700", "", "").index)
	assert.Equal(t, "custom", NewSearchClient("http://localhost:7700", "", "custom").index)
}
