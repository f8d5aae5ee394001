package main

import (
	"time"

	"github.com/samber/oops"
)

func parseRetention(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, oops.Code("INVALID_RETENTION").With("value", s).Wrap(err)
	}
	if d < 0 {
		return 0, oops.Code("INVALID_RETENTION").With("value", s).Errorf("retention must not be negative")
	}

	return d, nil
}
