package httpcache

import (
	"net/http"
	"strings"
	"time"
)

// NotModified reports whether the request's conditional headers match the
// current validators, meaning a 304 may be served. If-None-Match takes
// precedence: when the client presents any ETag candidates, the timestamp
// check is skipped entirely regardless of how stale If-Modified-Since
// looks. If-Modified-Since is only consulted when no ETag was presented,
// and allows TimestampTolerance of slack so a canonical timestamp that was
// truncated on the way out still matches on the way back in.
func NotModified(r *http.Request, token string, latest time.Time) bool {
	if raw := r.Header.Get("If-None-Match"); raw != "" {
		for _, candidate := range strings.Split(raw, ",") {
			candidate = strings.TrimSpace(candidate)
			candidate = strings.TrimPrefix(candidate, "W/")
			candidate = strings.Trim(candidate, `"`)
			if candidate == token || candidate == "*" {
				return true
			}
		}
		return false
	}
	raw := r.Header.Get("If-Modified-Since")
	if raw == "" {
		return false
	}
	since, err := parseHTTPTimestamp(raw)
	if err != nil {
		return false
	}
	if latest.IsZero() {
		return false
	}
	return !Canonicalize(latest).After(since.Add(TimestampTolerance))
}

// parseHTTPTimestamp accepts the RFC1123 GMT form emitted in Last-Modified
// as well as the compact ISO form echoed in X-Last-Modified-ISO, so clients
// may replay either header value.
func parseHTTPTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(http1123, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC1123, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02T15:04:05Z", raw)
}

// SetValidators writes the ETag, Last-Modified and X-Last-Modified-ISO
// headers for a response about to carry a body. A zero latest timestamp
// omits the timestamp headers.
func SetValidators(w http.ResponseWriter, token string, latest time.Time) {
	w.Header().Set("ETag", `"`+token+`"`)
	if !latest.IsZero() {
		w.Header().Set("Last-Modified", HTTPDate(latest))
		w.Header().Set("X-Last-Modified-ISO", ISO(latest))
	}
}

// WriteNotModified emits a 304 with the validators attached and no body.
func WriteNotModified(w http.ResponseWriter, token string, latest time.Time) {
	SetValidators(w, token, latest)
	w.WriteHeader(http.StatusNotModified)
}
