package repo

import "strings"

// prefixed qualifies every column of a comma-separated list with alias
// (e.g. "t."), so a shared column list can be reused in joins.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		trimmed := strings.TrimSpace(p)
		lead := p[:len(p)-len(strings.TrimLeft(p, " \t\n"))]
		parts[i] = lead + alias + trimmed
	}
	return strings.Join(parts, ",")
}
