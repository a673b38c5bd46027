package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToNumber(t *testing.T) {
	assert.Equal(t, 0.0, ToNumber(nil))
	assert.Equal(t, 2.5, ToNumber(2.5))
	assert.Equal(t, 7.0, ToNumber(7))
	assert.Equal(t, 1.0, ToNumber(true))
	assert.Equal(t, 1500.25, ToNumber("$1,500.25"))
	assert.Equal(t, 42.0, ToNumber(" 42 "))
	assert.Equal(t, 0.0, ToNumber("three hundred"))
	assert.Equal(t, 0.0, ToNumber(""))
	assert.Equal(t, 0.0, ToNumber(struct{}{}))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 100.01, RoundTo(100.009, 2))
	assert.Equal(t, 100.0, RoundTo(100.004, 2))
	assert.Equal(t, -2.5, RoundTo(-2.4999, 1))
	assert.Equal(t, 3.0, RoundTo(2.5, 0))
	assert.Equal(t, 3.0, RoundTo(2.6, -1))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1500.50", FormatNumber(1500.5, 2))
	assert.Equal(t, "5", FormatNumber(5.0, 0))
	assert.Equal(t, "5", FormatNumber(5.4, -1))
}

func TestStripQuotes(t *testing.T) {
	assert.Equal(t, "plain", StripQuotes(`"plain"`))
	assert.Equal(t, "plain", StripQuotes("'plain'"))
	assert.Equal(t, `"half`, StripQuotes(`"half`))
	assert.Equal(t, "spaced", StripQuotes(`  "spaced"  `))
}
