package httpx

import (
	"net/http"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/httpcache"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// List emits a paginated collection with conditional-cache validators. A
// matching If-None-Match or fresh-enough If-Modified-Since produces a 304;
// HEAD requests get the validators with no body.
func List[T any](w http.ResponseWriter, r *http.Request, items []T, ids []int64, total, limit, offset int, latest time.Time) {
	token := httpcache.Fingerprint(ids, total, limit, offset, latest)
	if httpcache.NotModified(r, token, latest) {
		httpcache.WriteNotModified(w, token, latest)
		return
	}
	httpcache.SetValidators(w, token, latest)
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	JSON(w, http.StatusOK, shared.NewListPayload(items, total, limit, offset, len(items)))
}

// Resource emits a single record with conditional-cache validators derived
// from its id and last mutation timestamp.
func Resource(w http.ResponseWriter, r *http.Request, id int64, updatedAt time.Time, body any) {
	token := httpcache.ResourceFingerprint(id, updatedAt)
	if httpcache.NotModified(r, token, updatedAt) {
		httpcache.WriteNotModified(w, token, updatedAt)
		return
	}
	httpcache.SetValidators(w, token, updatedAt)
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	JSON(w, http.StatusOK, body)
}
