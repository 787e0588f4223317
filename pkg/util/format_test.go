package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", OrDash(""))
	assert.Equal(t, "pending", OrDash("pending"))
}

func TestFirstOrDash(t *testing.T) {
	assert.Equal(t, "b", FirstOrDash("", "b", "c"))
	assert.Equal(t, "-", FirstOrDash("", ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "https://i…", Truncate("https://img.example/very-long-path.jpg", 10))
	assert.Equal(t, "untouched", Truncate("untouched", 0))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KB", FormatBytes(1024))
	assert.Equal(t, "1.5 MB", FormatBytes(1536*1024))
}
