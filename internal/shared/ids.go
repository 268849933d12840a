package shared

import "strconv"

// ParseID parses a positive decimal identifier from a path or query value.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ValidationErrorf("invalid id %q", raw)
	}
	return id, nil
}
