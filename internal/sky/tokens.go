package sky

import (
	"strings"

	"github.com/skyscope/skyscope/internal/models"
)

// ToClassToken lower-cases name and joins its words with underscores.
// Applying it to a token returns the token unchanged.
func ToClassToken(name string) models.ClassToken {
	return models.ClassToken(strings.ReplaceAll(strings.ToLower(name), " ", "_"))
}

// ToClassTokens maps names to tokens, preserving order.
func ToClassTokens(names []string) []models.ClassToken {
	tokens := make([]models.ClassToken, 0, len(names))
	for _, name := range names {
		tokens = append(tokens, ToClassToken(name))
	}
	return tokens
}
