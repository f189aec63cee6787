package utils

import "strings"

// JoinWithAnd joins a slice of strings with AND operator
func JoinWithAnd(clauses []string) string {
	return strings.Join(clauses, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so s matches literally.
// Postgres uses backslash as the default LIKE escape character.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ContainsPattern wraps s for a substring ILIKE match.
func ContainsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}
