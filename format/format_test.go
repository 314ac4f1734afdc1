package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{1, "1 B"},
		{1023, "1023 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{1572864, "1.5 MB"},
		{1234567, "1.18 MB"},
		{1073741824, "1 GB"},
		{5 * 1099511627776, "5120 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FileSize(tt.bytes))
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		ms       int64
		expected string
	}{
		{0, ""},
		{-1000, ""},
		{999, "0s"},
		{45000, "45s"},
		{60000, "1m 0s"},
		{125000, "2m 5s"},
		{3600000, "1h 0m"},
		{3725000, "1h 2m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Duration(tt.ms), "Duration(%d)", tt.ms)
	}
}
