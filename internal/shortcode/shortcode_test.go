package shortcode

import (
	"testing"

	"github.com/pavelzorin/shortlink/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestGenerator_Generate(t *testing.T) {
	g := New(7)

	t.Run("fixed width", func(t *testing.T) {
		for _, seed := range []string{"", "a", "https://example.com", "https://example.com|salt"} {
			assert.Len(t, g.Generate(seed), 7)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, g.Generate("https://example.com"), g.Generate("https://example.com"))
	})

	t.Run("seed sensitive", func(t *testing.T) {
		assert.NotEqual(t, g.Generate("https://example.com|1"), g.Generate("https://example.com|2"))
	})

	t.Run("url-safe alphabet", func(t *testing.T) {
		code := g.Generate("https://example.com/a/b/c?q=1")
		assert.NoError(t, ValidateAlias(code))
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		length     int
		wantLength int
	}{
		{"negative length", -1, DefaultLength},
		{"zero length", 0, DefaultLength},
		{"custom length", 5, 5},
		{"too long", MaxAliasLength + 1, DefaultLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantLength, New(tt.length).Length())
		})
	}
}

func TestValidateAlias(t *testing.T) {
	tests := []struct {
		name    string
		alias   string
		wantErr bool
	}{
		{"empty", "", true},
		{"too long", "abcdefghijk", true},
		{"spaces", "my link", true},
		{"slash", "a/b", true},
		{"unicode", "héllo", true},
		{"alphanumeric", "myLink42", false},
		{"dash and underscore", "my-link_1", false},
		{"single character", "x", false},
		{"max length", "abcdefghij", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAlias(tt.alias)

			if tt.wantErr {
				assert.ErrorIs(t, err, entity.ErrInvalidAlias)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
