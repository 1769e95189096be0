package store

import (
	"fmt"
	"time"
)

// Timestamps are stored as RFC 3339 TEXT in UTC with a fixed width, so they
// compare correctly as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func marshalTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unmarshal time %q: %w", s, err)
	}
	return t, nil
}

func marshalBool(b bool) int {
	if b {
		return 1
	}
	return 0
}
