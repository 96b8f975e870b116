package client

import (
	"math/rand/v2"
	"strconv"
	"time"
)

const (
	HeaderCorrelationID    = "X-Correlation-ID"
	HeaderRequestTimestamp = "X-Request-Timestamp"

	correlationAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	correlationSuffix   = 9
)

// NewCorrelationID returns "{epoch-ms}-{9 base36 chars}".
func NewCorrelationID(now time.Time) string {
	buf := make([]byte, 0, 24)
	buf = strconv.AppendInt(buf, now.UnixMilli(), 10)
	buf = append(buf, '-')
	for i := 0; i < correlationSuffix; i++ {
		buf = append(buf, correlationAlphabet[rand.IntN(len(correlationAlphabet))])
	}
	return string(buf)
}

// RequestTimestamp formats now as ISO-8601 UTC with millisecond precision.
func RequestTimestamp(now time.Time) string {
	return now.UTC().Format("2006-01-02T15:04:05.000Z")
}
