package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSubjectID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw   string
		valid bool
		value int
	}{
		{"42", true, 42},
		{" 7 ", true, 7},
		{"-3", true, -3},
		{"", false, 0},
		{"abc", false, 0},
		{"+5", true, 5},
		{"12x", true, 12},
		{"1.5", true, 1},
		{"7abc", true, 7},
		{"  -08 participants", true, -8},
		{"-", false, 0},
		{"x12", false, 0},
		{".5", false, 0},
		{"99999999999999999999999", false, 0},
	}

	for _, tc := range cases {
		got := ParseSubjectID(tc.raw)
		assert.Equal(t, tc.valid, got.Valid, "raw=%q", tc.raw)
		assert.Equal(t, tc.value, got.Value, "raw=%q", tc.raw)
	}
}

func TestIsValidPointID(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidPointID("Pt1"))
	assert.True(t, IsValidPointID("center_point-2"))
	assert.False(t, IsValidPointID(""))
	assert.False(t, IsValidPointID("<script>"))
	assert.False(t, IsValidPointID("a b"))
}

func TestGenerateSecureToken(t *testing.T) {
	t.Parallel()

	a, err := GenerateSecureToken(32)
	assert.NoError(t, err)
	b, err := GenerateSecureToken(32)
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 44)
}
