package commandgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractResponseText(t *testing.T) {
	t.Run("valid messages response", func(t *testing.T) {
		body := []byte(`{
			"content": [{"type": "text", "text": "Navigate to the login page\nClick submit"}],
			"stop_reason": "end_turn"
		}`)

		text, err := extractResponseText(body)
		require.NoError(t, err)
		assert.Equal(t, "Navigate to the login page\nClick submit", text)
	})

	t.Run("surrounding whitespace trimmed", func(t *testing.T) {
		body := []byte(`{"content": [{"type": "text", "text": "\n  Click submit  \n"}]}`)

		text, err := extractResponseText(body)
		require.NoError(t, err)
		assert.Equal(t, "Click submit", text)
	})

	t.Run("first content block wins", func(t *testing.T) {
		body := []byte(`{"content": [
			{"type": "text", "text": "first"},
			{"type": "text", "text": "second"}
		]}`)

		text, err := extractResponseText(body)
		require.NoError(t, err)
		assert.Equal(t, "first", text)
	})

	t.Run("empty content array", func(t *testing.T) {
		_, err := extractResponseText([]byte(`{"content": []}`))
		assert.Error(t, err)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := extractResponseText([]byte(`{"content": [{"type": "text", "text": "   "}]}`))
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := extractResponseText([]byte(`not json`))
		assert.Error(t, err)
	})
}
