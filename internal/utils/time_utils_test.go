package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseStringTime(t *testing.T) {
	tests := []struct {
		timeString string
		expected   time.Duration
	}{
		{"10s", 10 * time.Second},
		{"20M", 20 * time.Minute},
		{"48h", 48 * time.Hour},
		{"2d", 2 * time.Hour * 24},
		{"250ms", 250 * time.Millisecond},
		{"1m30s", 90 * time.Second},
		{" 5s ", 5 * time.Second},
		{"", 0},
		{"soon", 0},
	}

	for _, test := range tests {
		result := ParseStringTime(test.timeString)
		assert.Equal(t, test.expected, result, "ParseStringTime(%q)", test.timeString)
	}
}

func TestParseStringTimeOr(t *testing.T) {
	assert.Equal(t, 3*time.Second, ParseStringTimeOr("", 3*time.Second))
	assert.Equal(t, 3*time.Second, ParseStringTimeOr("bogus", 3*time.Second))
	assert.Equal(t, time.Second, ParseStringTimeOr("1s", 3*time.Second))
}
