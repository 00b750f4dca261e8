package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration string
		expected string
	}{
		{"0s", "00:00:00.000"},
		{"5.2s", "00:00:05.200"},
		{"59.9s", "00:00:59.900"},
		{"60s", "00:01:00.000"},
		{"1m30s", "00:01:30.000"},
		{"3599.9s", "00:59:59.900"},
		{"1h23m45s678ms", "01:23:45.678"},
		{"26h", "26:00:00.000"},
	}

	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			d, err := time.ParseDuration(tt.duration)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, formatDuration(d))
		})
	}
}

func TestExpandTabs(t *testing.T) {
	assert.Equal(t, "a       b", expandTabs("a\tb", 8))
	assert.Equal(t, "    x\n    y", expandTabs("\tx\n\ty", 4))
	assert.Equal(t, "ab  c", expandTabs("ab\tc", 4))
}

func TestEnsureReset(t *testing.T) {
	assert.Equal(t, "x\x1b[0m", ensureReset("x"))
	assert.Equal(t, "x\x1b[0m", ensureReset("x\x1b[0m"))
}
