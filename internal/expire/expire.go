// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package expire owns the expiration policy and the timestamp format used by
// cache entries. Timestamps are ISO-8601 in local time with no timezone
// normalization, which keeps durable files portable between runs on the same
// machine and readable by humans.
package expire

import (
	"fmt"
	"time"
)

// Layout is the marshaling layout. Sub-second digits are dropped when zero.
const Layout = "2006-01-02T15:04:05.999999"

// parseLayouts are tried in order. Files written by other tooling may carry
// an explicit offset, so the RFC3339 forms are accepted too.
var parseLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// At returns the expiration instant for a value stored at now with the given
// time-to-live.
func At(now time.Time, ttlSeconds int) time.Time {
	return now.Add(time.Duration(ttlSeconds) * time.Second)
}

// IsExpired reports whether an entry expiring at expires is stale as of now.
// The boundary instant itself is expired.
func IsExpired(expires, now time.Time) bool {
	return !now.Before(expires)
}

// Format renders t in the cache timestamp layout.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse reads a cache timestamp. Naive timestamps are interpreted in local
// time.
func Parse(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable expiration timestamp %q", s)
}
