package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassificationCode(t *testing.T) {
	t.Run("recognized formats yield the same code", func(t *testing.T) {
		tests := []struct {
			name   string
			raw    string
			format SourceFormat
		}{
			{"pipe", "334516 | Analytical Laboratory Instrument Manufacturing", FormatPipe},
			{"colon", "334516: Analytical Laboratory Instrument Manufacturing", FormatColon},
			{"hyphen", "334516 - Analytical Laboratory Instrument Manufacturing", FormatHyphen},
			{"space", "334516 Analytical Laboratory Instrument Manufacturing", FormatSpace},
			{"code only", "334516", FormatCodeOnly},
			{"decimal suffix", "334516.0", FormatDecimal},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := ClassificationCode(tt.raw)
				assert.Equal(t, "334516", got.Code)
				assert.Equal(t, tt.format, got.Format)
				assert.Equal(t, "334516 | Analytical Laboratory Instrument Manufacturing", got.Standardized)
			})
		}
	})

	t.Run("code-only resolves description from canonical table", func(t *testing.T) {
		got := ClassificationCode("541511")
		assert.Equal(t, "541511", got.Code)
		assert.Equal(t, "Custom Computer Programming Services", got.Description)
		assert.Equal(t, "541511 | Custom Computer Programming Services", got.Standardized)
	})

	t.Run("failed lookup leaves standardized as bare code", func(t *testing.T) {
		got := ClassificationCode("991234")
		assert.Equal(t, "991234", got.Code)
		assert.Empty(t, got.Description)
		assert.Equal(t, "991234", got.Standardized)
	})

	t.Run("placeholders normalize to no value", func(t *testing.T) {
		for _, raw := range []string{"TBD", "tbd", "N/A", "n/a", "NA", "TO BE DETERMINED", "to be determined", "", "   "} {
			got := ClassificationCode(raw)
			assert.True(t, got.Empty(), "expected empty result for %q", raw)
			assert.Empty(t, got.Standardized)
		}
	})

	t.Run("unmatched input passes through with best-effort lookup", func(t *testing.T) {
		got := ClassificationCode("Professional Services")
		assert.Equal(t, "Professional Services", got.Code)
		assert.Equal(t, FormatPassthrough, got.Format)
		assert.Equal(t, "Professional Services", got.Standardized)
	})

	t.Run("description never invented for code with placeholder desc", func(t *testing.T) {
		got := ClassificationCode("541511 | TBD")
		assert.Equal(t, "541511", got.Code)
		assert.Equal(t, "Custom Computer Programming Services", got.Description)
	})
}

func TestRenderStandardized(t *testing.T) {
	assert.Equal(t, "541511 | Custom Computer Programming Services", RenderStandardized("541511", "Custom Computer Programming Services"))
	assert.Equal(t, "541511", RenderStandardized("541511", ""))
	assert.Equal(t, "", RenderStandardized("", "anything"))
}
