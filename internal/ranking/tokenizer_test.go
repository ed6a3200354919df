// internal/ranking/tokenizer_test.go
package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeSplitsOnNonAlphanumeric(t *testing.T) {
	tokens := Tokenize("AI & Community-Garden!!")
	assert.Equal(t, []string{"community", "garden"}, tokens)
}

func TestTokenizeLowercases(t *testing.T) {
	tokens := Tokenize("URBAN Farming")
	assert.Equal(t, []string{"urban", "farming"}, tokens)
}

func TestTokenizeDropsShortFragments(t *testing.T) {
	tokens := Tokenize("go to the big park")
	assert.Equal(t, []string{"the", "big", "park"}, tokens)
}

func TestTokenizeDedupesKeepingFirstOrder(t *testing.T) {
	tokens := Tokenize("garden, park, garden, PARK, trees")
	assert.Equal(t, []string{"garden", "park", "trees"}, tokens)
}

func TestTokenizeKeepsDigits(t *testing.T) {
	tokens := Tokenize("vision2030 goals")
	assert.Equal(t, []string{"vision2030", "goals"}, tokens)
}

func TestTokenizeEmptyInput(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("  !!! ,, a bc "))
}
