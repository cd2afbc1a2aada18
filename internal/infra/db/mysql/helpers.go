package mysql

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// toJSON marshals v for a JSON column; nil-safe, never fails the write.
func toJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// fromJSON unmarshals a JSON column into out; an empty column is a no-op.
func fromJSON(s sql.NullString, out any) {
	if !s.Valid || strings.TrimSpace(s.String) == "" {
		return
	}
	_ = json.Unmarshal([]byte(s.String), out)
}

// escapeLikePattern escapes special characters in LIKE patterns to prevent SQL injection
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
