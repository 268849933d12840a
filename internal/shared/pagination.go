package shared

import "strconv"

const (
	// DefaultLimit applies when the limit query parameter is absent.
	DefaultLimit = 50
	// MaxLimit caps the page size for every listing.
	MaxLimit = 200
)

// NormalizePagination parses and clamps limit/offset query parameters.
func NormalizePagination(limitRaw, offsetRaw string) (int, int, error) {
	limit := DefaultLimit
	offset := 0
	if limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			return 0, 0, ValidationErrorf("limit must be int")
		}
		limit = parsed
	}
	if offsetRaw != "" {
		parsed, err := strconv.Atoi(offsetRaw)
		if err != nil {
			return 0, 0, ValidationErrorf("offset must be int")
		}
		offset = parsed
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, nil
}

// ListMeta describes the pagination frame of a listing response.
type ListMeta struct {
	Total    int `json:"total"`
	Limit    int `json:"limit"`
	Offset   int `json:"offset"`
	Returned int `json:"returned"`
}

// ListPayload is the wire shape shared by every listing endpoint.
type ListPayload struct {
	Data       any      `json:"data"`
	Pagination ListMeta `json:"pagination"`
}

// NewListPayload wraps rows with their pagination frame.
func NewListPayload(data any, total, limit, offset, returned int) ListPayload {
	return ListPayload{
		Data:       data,
		Pagination: ListMeta{Total: total, Limit: limit, Offset: offset, Returned: returned},
	}
}
