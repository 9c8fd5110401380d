// Package shortcode derives short codes for long URLs and validates
// caller-supplied aliases.
//
// Codes are derived from content, not from a sequential counter: the seed
// (original URL plus a uniqueness salt) is hashed with SHA-256 and the first
// eight bytes are rendered as a fixed-width base62 string. Generation is
// stateless, so any number of service instances can derive codes without
// coordination. Collisions are handled by the caller, which retries with a
// fresh salt.
package shortcode

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/pavelzorin/shortlink/internal/entity"
)

// alphabet is the base62 character set: URL-safe, no padding characters.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	// DefaultLength is the width of generated codes.
	DefaultLength = 7

	// MaxAliasLength bounds caller-supplied aliases.
	MaxAliasLength = 10
)

// Generator derives fixed-width short codes from seeds.
type Generator struct {
	length int
}

// New creates a Generator producing codes of the given width.
// Non-positive lengths fall back to DefaultLength.
func New(length int) *Generator {
	if length <= 0 || length > MaxAliasLength {
		length = DefaultLength
	}

	return &Generator{length: length}
}

// Generate derives a short code from the seed. The same seed always yields
// the same code; callers vary the seed's salt to re-derive after a collision.
func (g *Generator) Generate(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	num := binary.BigEndian.Uint64(sum[:8])

	buf := make([]byte, g.length)
	for i := g.length - 1; i >= 0; i-- {
		buf[i] = alphabet[num%uint64(len(alphabet))]
		num /= uint64(len(alphabet))
	}

	return string(buf)
}

// Length returns the width of codes produced by the generator.
func (g *Generator) Length() int {
	return g.length
}

// ValidateAlias checks a caller-supplied alias against the character and
// length policy. Aliases use the base62 alphabet plus '-' and '_'.
func ValidateAlias(alias string) error {
	const op = "shortcode.ValidateAlias"

	if len(alias) == 0 || len(alias) > MaxAliasLength {
		return fmt.Errorf("%s: length must be 1..%d: %w", op, MaxAliasLength, entity.ErrInvalidAlias)
	}

	for _, c := range alias {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return fmt.Errorf("%s: character %q not allowed: %w", op, c, entity.ErrInvalidAlias)
		}
	}

	return nil
}
