package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures what differs between the SQL backends
type Dialect struct {
	// Name is used in error messages and logs
	Name string
	// Schema statements are executed in order on startup
	Schema []string
	// Rebind rewrites a query written with ? placeholders
	Rebind func(query string) string
	// IsUniqueViolation reports whether err came from a unique constraint
	IsUniqueViolation func(err error) bool
}

// KeepQuestionMarks leaves ? placeholders untouched
func KeepQuestionMarks(query string) string {
	return query
}

// DollarPlaceholders rewrites ? placeholders to $1, $2, ...
func DollarPlaceholders(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
