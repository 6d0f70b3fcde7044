package common

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

type payload struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestParseJSONPlain(t *testing.T) {
	got, err := ParseJSON[payload](`{"name": "a", "items": ["x"]}`)
	assert.NoError(t, err)
	assert.Equal(t, "a", got.Name)
}

func TestParseJSONInsideMarkdownFence(t *testing.T) {
	response := "Here is the result:\n```json\n{\"name\": \"a\", \"items\": [\"x\", \"y\"]}\n```\nLet me know if you need more."
	got, err := ParseJSON[payload](response)
	assert.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got.Items)
}

func TestParseJSONNoObject(t *testing.T) {
	_, err := ParseJSON[payload]("I could not produce anything useful.")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abcde", Truncate("abcdefgh", 5))
	assert.Equal(t, "", Truncate("", 5))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// "é" is two bytes; a cut at 2 would split it.
	assert.Equal(t, "h", Truncate("héllo", 2))
	assert.Equal(t, "hé", Truncate("héllo", 3))
	for i := 1; i < len("日本語のテキスト"); i++ {
		assert.True(t, utf8.ValidString(Truncate("日本語のテキスト", i)))
	}
}

func TestDedupeStrings(t *testing.T) {
	got := DedupeStrings([]string{" a good CPA ", "", "referrals"}, []string{"A Good CPA", "staging"})
	assert.Equal(t, []string{"a good CPA", "referrals", "staging"}, got)

	assert.Nil(t, DedupeStrings(nil, []string{"", "  "}))
}
