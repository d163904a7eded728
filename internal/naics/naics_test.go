package naics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCode(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"541511", true},
		{"334516", true},
		{" 541511 ", true},
		{"041511", false}, // leading zero
		{"54151", false},
		{"5415111", false},
		{"54151a", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsCode(tt.in), "IsCode(%q)", tt.in)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "541511", Normalize("541511.0"))
	assert.Equal(t, "541511", Normalize("  541511 "))
	assert.Equal(t, "", Normalize("541511.5"))
	assert.Equal(t, "", Normalize("not a code"))
	assert.Equal(t, "", Normalize(""))
}

func TestLookup(t *testing.T) {
	t.Run("exact code", func(t *testing.T) {
		title, ok := Lookup("541511")
		assert.True(t, ok)
		assert.Equal(t, "Custom Computer Programming Services", title)
	})

	t.Run("falls back to sector title", func(t *testing.T) {
		title, ok := Lookup("541999")
		assert.True(t, ok)
		assert.Equal(t, "Professional, Scientific, and Technical Services", title)
	})

	t.Run("unknown sector", func(t *testing.T) {
		_, ok := Lookup("991234")
		assert.False(t, ok)
	})
}

func TestValidSector(t *testing.T) {
	assert.True(t, ValidSector("541511"))
	assert.True(t, ValidSector("33"))
	assert.False(t, ValidSector("991234"))
	assert.False(t, ValidSector("9"))
}
