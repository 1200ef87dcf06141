// Package shortcode generates random short codes for shortened URLs.
package shortcode

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	hexAlphabet = "0123456789abcdef"

	// DefaultLength gives 16^8 = 2^32 possible codes.
	DefaultLength = 8
)

// Generator produces lowercase hex codes of a fixed length.
// Randomness comes from crypto/rand, so codes cannot be predicted from earlier ones.
type Generator struct {
	length int
}

// NewGenerator returns a Generator for codes of the given length.
// A non-positive length falls back to DefaultLength.
func NewGenerator(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}

	return &Generator{length: length}
}

// Generate returns a fresh candidate short code.
func (g *Generator) Generate() (string, error) {
	const op = "shortcode.Generator.Generate"

	code, err := gonanoid.Generate(hexAlphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}
