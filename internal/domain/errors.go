package domain

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is a Deploy Manager error response. Detail mirrors the wire
// field and may be a string, a list or a mapping.
type APIError struct {
	Status int
	Detail any
}

func (e *APIError) Error() string {
	lines := e.DetailLines()
	if len(lines) == 0 {
		return fmt.Sprintf("deploy manager: %d", e.Status)
	}
	return strings.Join(lines, "; ")
}

// DetailLines flattens the detail payload into printable lines.
func (e *APIError) DetailLines() []string {
	switch d := e.Detail.(type) {
	case nil:
		return []string{"No error message provided!"}
	case string:
		return []string{d}
	case []any:
		out := make([]string, 0, len(d))
		for _, item := range d {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, fmt.Sprintf("%s: %v", k, d[k]))
		}
		return out
	default:
		return []string{fmt.Sprint(d)}
	}
}

// IsNotFound reports whether err is the Deploy Manager telling us the
// resource does not exist, as opposed to a real failure.
func IsNotFound(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	if ae.Status == http.StatusNotFound {
		return true
	}
	return strings.Contains(strings.ToLower(strings.Join(ae.DetailLines(), " ")), "not found")
}
