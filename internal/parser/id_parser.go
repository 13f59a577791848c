package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// ResolveID expands a unique id prefix to the full id.
// An exact match always wins over prefix matches.
func ResolveID(prefix string, ids []string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("empty id")
	}

	var matches []string
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no record matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

// ShortID returns the first 8 characters of an id for display
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// ParsePosition converts a 1-based item number typed by the user into a
// 0-based index within n items.
func ParsePosition(input string, n int) (int, error) {
	pos, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("invalid item number %q", input)
	}
	if pos < 1 || pos > n {
		if n == 0 {
			return 0, fmt.Errorf("item %d out of range (no items)", pos)
		}
		return 0, fmt.Errorf("item %d out of range (1-%d)", pos, n)
	}
	return pos - 1, nil
}
