package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoSchema(t *testing.T) {
	t.Run("product commands yield product schema", func(t *testing.T) {
		schema := AutoSchema([]string{"find the cheapest product"}, "https://shop.example.com")
		require.Contains(t, schema, "products")
	})

	t.Run("amazon target yields the richer product schema", func(t *testing.T) {
		schema := AutoSchema([]string{"compare prices"}, "https://www.amazon.com/s?k=laptops")
		products, ok := schema["products"].([]interface{})
		require.True(t, ok)
		require.Len(t, products, 1)
		first, ok := products[0].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, first, "rating")
		assert.Contains(t, first, "availability")
	})

	t.Run("search commands yield results schema", func(t *testing.T) {
		schema := AutoSchema([]string{"search for golang tutorials"}, "https://example.com")
		assert.Contains(t, schema, "results")
	})

	t.Run("news commands yield articles schema", func(t *testing.T) {
		schema := AutoSchema([]string{"collect every headline on the page"}, "https://news.example.com")
		assert.Contains(t, schema, "articles")
	})

	t.Run("form commands yield form schema", func(t *testing.T) {
		schema := AutoSchema([]string{"fill in the signup form"}, "https://example.com")
		assert.Contains(t, schema, "form_data")
	})

	t.Run("social commands yield posts schema", func(t *testing.T) {
		schema := AutoSchema([]string{"read the latest tweet"}, "https://example.com")
		assert.Contains(t, schema, "posts")
	})

	t.Run("unmatched commands fall back to generic schema", func(t *testing.T) {
		schema := AutoSchema([]string{"scroll to the bottom"}, "https://example.com")
		assert.Contains(t, schema, "data")
	})

	t.Run("product keywords win over search keywords", func(t *testing.T) {
		schema := AutoSchema([]string{"search for the best price"}, "https://example.com")
		assert.Contains(t, schema, "products")
	})
}
