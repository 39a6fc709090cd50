// Package pickup generates the short numeric codes a student reads out at the
// counter to collect an order.
//
// Codes are uniform over [0, 10^digits) and zero-padded. They are not unique
// across orders; a code only has to match the one order it was issued with.
package pickup

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	MinDigits     = 4
	MaxDigits     = 6
	DefaultDigits = 4
)

var ErrDigits = errors.New("pickup: digits must be between 4 and 6")

// Generator issues pickup codes of a fixed length.
type Generator struct {
	digits int
	max    *big.Int
	src    io.Reader
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator(digits int) (*Generator, error) {
	return NewGeneratorFrom(digits, rand.Reader)
}

// NewGeneratorFrom uses src as the entropy source. Tests pass a fixed reader.
func NewGeneratorFrom(digits int, src io.Reader) (*Generator, error) {
	if digits < MinDigits || digits > MaxDigits {
		return nil, ErrDigits
	}
	return &Generator{
		digits: digits,
		max:    new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil),
		src:    src,
	}, nil
}

// Digits is the code length.
func (g *Generator) Digits() int { return g.digits }

// Generate draws a new code.
func (g *Generator) Generate() (string, error) {
	n, err := rand.Int(g.src, g.max)
	if err != nil {
		return "", fmt.Errorf("pickup: draw code: %w", err)
	}
	return fmt.Sprintf("%0*d", g.digits, n.Int64()), nil
}

// Valid reports whether code has the shape of a code from g.
func (g *Generator) Valid(code string) bool {
	return len(code) == g.digits && strings.Trim(code, "0123456789") == ""
}

// Match compares a code typed at the counter with the issued one,
// ignoring surrounding whitespace.
func Match(issued, presented string) bool {
	presented = strings.TrimSpace(presented)
	return issued != "" && issued == presented
}
