// Package httpcache computes deterministic validators for conditional GET
// and HEAD requests: an opaque fingerprint used as the ETag and a
// canonicalized last-modified timestamp rendered both as an RFC1123
// HTTP-date and as a compact ISO-8601 echo.
package httpcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// TimestampTolerance absorbs formatting round-trip skew when comparing a
// canonical timestamp with a client-supplied If-Modified-Since value.
const TimestampTolerance = time.Second

// Canonicalize normalizes a timestamp to UTC with sub-second precision
// truncated, so microsecond jitter between two computations cannot change
// the fingerprint.
func Canonicalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// ISO renders a canonicalized timestamp in the compact ISO-8601 UTC form.
// The zero time renders as the empty string.
func ISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return Canonicalize(t).Format("2006-01-02T15:04:05Z")
}

// HTTPDate renders a canonicalized timestamp as an RFC1123 GMT HTTP-date.
func HTTPDate(t time.Time) string {
	return Canonicalize(t).Format(http1123)
}

const http1123 = "Mon, 02 Jan 2006 15:04:05 GMT"

// Fingerprint computes the opaque cache validator for a page of rows.
// Identical inputs always yield the identical token; the seed covers the
// identity list, the pagination frame and the canonical ISO form of the most
// recent mutation timestamp among the rows.
func Fingerprint(ids []int64, total, limit, offset int, latest time.Time) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	seed := fmt.Sprintf("[%s]|%d|%d|%d|%s", strings.Join(parts, " "), total, limit, offset, ISO(latest))
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:32]
}

// ResourceFingerprint computes the validator for a single-resource response,
// which is framed as a one-row page.
func ResourceFingerprint(id int64, updatedAt time.Time) string {
	return Fingerprint([]int64{id}, 1, 1, 0, updatedAt)
}

// LatestTimestamp returns the most recent of the given timestamps.
func LatestTimestamp(times ...time.Time) time.Time {
	var latest time.Time
	for _, t := range times {
		if t.After(latest) {
			latest = t
		}
	}
	return latest
}
