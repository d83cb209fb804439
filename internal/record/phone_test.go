package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPhone(t *testing.T) {
	tests := map[string]string{
		"5551234567":      "(555) 123-4567",
		"555-123-4567":    "(555) 123-4567",
		"(555) 123 4567":  "(555) 123-4567",
		"123":             "123",
		"+1 555 123 4567": "+1 555 123 4567",
		"":                "",
		"phone":           "phone",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatPhone(in), "input %q", in)
	}
}
