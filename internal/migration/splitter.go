package migration

import (
	"regexp"
	"strings"
)

// statementTerminator is a semicolon followed by optional spaces or tabs and
// then a line break or the end of the text.
var statementTerminator = regexp.MustCompile(`;[ \t]*(?:\r?\n|\z)`)

// SplitStatements breaks a migration file into trimmed, non-empty statements.
//
// The split is purely textual. It does not know about string literals,
// comments or procedure bodies, so a semicolon at the end of a line inside any
// of those ends the statement early. Keep migrations to plain statements, one
// terminator per statement.
func SplitStatements(text string) []string {
	parts := statementTerminator.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
