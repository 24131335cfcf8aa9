package database

import (
	"strconv"
	"strings"
)

// Rebind converts ? placeholders to the dialect's native form.
// For PostgreSQL it rewrites them to $1, $2, ...; SQLite queries are returned unchanged.
func (db *DB) Rebind(query string) string {
	return rebind(db.dialect, query)
}

// rebind skips ? characters inside single-quoted string literals so that
// LIKE patterns and literals pass through untouched.
func rebind(d Dialect, query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inLiteral := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			b.WriteByte(c)
		case c == '?' && !inLiteral:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
