package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLikelyBinary(t *testing.T) {
	assert.False(t, IsLikelyBinary([]byte("plain text content")))
	assert.True(t, IsLikelyBinary([]byte{0x50, 0x4B, 0x00, 0x01}))
	assert.False(t, IsLikelyBinary(nil))
}

func TestCleanContentStripsBOM(t *testing.T) {
	out, err := CleanContent([]byte{0xEF, 0xBB, 0xBF, 'h', 'i'}, "test")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestCleanContentNormalizesPunctuation(t *testing.T) {
	out, err := CleanContent([]byte("“quoted” and ‘single’ – dash…"), "test")
	require.NoError(t, err)
	assert.Equal(t, `"quoted" and 'single' - dash...`, out)
}

func TestCleanContentRepairsInvalidUTF8(t *testing.T) {
	out, err := CleanContent([]byte{'o', 'k', 0xFF, 0xFE}, "test")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}
