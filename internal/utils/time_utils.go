package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/logger"
)

var timeUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"ms", time.Millisecond},
	{"s", time.Second},
	{"m", time.Minute},
	{"h", time.Hour},
	{"d", 24 * time.Hour},
}

// ParseStringTime converts strings such as "250ms", "10s", "5m", "2h" or "1d"
// into a duration. Anything else is handed to time.ParseDuration; an invalid
// value is logged and yields 0.
func ParseStringTime(timeString string) time.Duration {
	timeString = strings.ToLower(strings.TrimSpace(timeString))
	if timeString == "" {
		return 0
	}
	for _, u := range timeUnits {
		cutString, found := strings.CutSuffix(timeString, u.suffix)
		if !found {
			continue
		}
		number, err := strconv.Atoi(cutString)
		if err != nil {
			break
		}
		return time.Duration(number) * u.unit
	}
	d, err := time.ParseDuration(timeString)
	if err != nil {
		logger.ErrorF("invalid time format: %s", timeString)
		return 0
	}
	return d
}

// ParseStringTimeOr is ParseStringTime with a fallback for empty or invalid input.
func ParseStringTimeOr(timeString string, fallback time.Duration) time.Duration {
	if d := ParseStringTime(timeString); d > 0 {
		return d
	}
	return fallback
}
