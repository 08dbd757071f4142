package migrations

import (
	"errors"
	"strings"
)

var errUnterminated = errors.New("unterminated string literal")

// splitStatements splits a SQL script into statements, one per driver Exec.
// Semicolons inside single-quoted literals, backquoted identifiers and
// "--" line comments do not end a statement. Comments are dropped.
func splitStatements(script string) ([]string, error) {
	var (
		stmts []string
		cur   strings.Builder
		quote byte // ' or ` while inside a literal, 0 otherwise
	)

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(script); i++ {
		ch := script[i]

		if quote != 0 {
			cur.WriteByte(ch)
			switch {
			case ch == '\\' && i+1 < len(script):
				i++
				cur.WriteByte(script[i])
			case ch == quote && i+1 < len(script) && script[i+1] == quote:
				i++
				cur.WriteByte(script[i])
			case ch == quote:
				quote = 0
			}
			continue
		}

		switch {
		case ch == '\'' || ch == '`':
			quote = ch
			cur.WriteByte(ch)
		case ch == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}

	if quote != 0 {
		return nil, errUnterminated
	}
	flush()
	return stmts, nil
}
