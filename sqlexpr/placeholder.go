package sqlexpr

import "strconv"

// NormalizePlaceholders rewrites a "?"-style SQL string into ":n"-numbered
// placeholders for drivers that require numbered parameters (spec §4.1).
// The underlying lexer skips single-line "--" comments, "/* ... */"
// comments, single-quoted strings (with '' escape), and double-quoted
// identifiers so a "?" inside any of those is left untouched.
//
// Grounded on the teacher's tokenizer conventions (parser/token.go's
// comment/string-skipping state machine), narrowed to this one concern:
// this module never parses arbitrary SQL, only normalizes the handful of
// placeholders it itself emitted.
func NormalizePlaceholders(sql string) string {
	var out []byte
	n := 0
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			start := i
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			out = append(out, sql[start:i]...)
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			start := i
			i += 2
			for i+1 < len(sql) && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			if i+1 < len(sql) {
				i += 2
			} else {
				i = len(sql)
			}
			out = append(out, sql[start:i]...)
		case c == '\'':
			start := i
			i++
			for i < len(sql) {
				if sql[i] == '\'' {
					if i+1 < len(sql) && sql[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			out = append(out, sql[start:i]...)
		case c == '"':
			start := i
			i++
			for i < len(sql) && sql[i] != '"' {
				i++
			}
			if i < len(sql) {
				i++
			}
			out = append(out, sql[start:i]...)
		case c == '?':
			n++
			out = append(out, ':')
			out = append(out, []byte(strconv.Itoa(n))...)
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// FirstTopLevelIdentifier extracts the first top-level identifier of sql
// (skipping leading whitespace and comments; a statement that starts with
// a quoted string yields ""), used by
// drivers to detect whether a statement is a SELECT.
func FirstTopLevelIdentifier(sql string) string {
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i += 2
			for i+1 < len(sql) && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			i += 2
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			start := i
			for i < len(sql) && isIdentPart(sql[i]) {
				i++
			}
			return sql[start:i]
		default:
			return ""
		}
	}
	return ""
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
