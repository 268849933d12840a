package shared

import "strings"

// ParseSort translates a comma-separated sort expression into an ORDER BY
// fragment. Tokens may be prefixed with '-' for descending order; only keys
// present in allowed (key -> column name) are accepted. The tiebreaker column
// is always appended ascending for deterministic pagination.
func ParseSort(expr string, allowed map[string]string, tiebreaker string) (string, error) {
	if strings.TrimSpace(expr) == "" {
		return tiebreaker + " ASC", nil
	}
	var clauses []string
	for _, raw := range strings.Split(expr, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		desc := strings.HasPrefix(token, "-")
		key := strings.TrimPrefix(token, "-")
		col, ok := allowed[key]
		if !ok {
			return "", ValidationErrorf("invalid sort field %s", key)
		}
		if desc {
			clauses = append(clauses, col+" DESC")
		} else {
			clauses = append(clauses, col+" ASC")
		}
	}
	clauses = append(clauses, tiebreaker+" ASC")
	return strings.Join(clauses, ", "), nil
}
