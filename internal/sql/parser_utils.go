package sql

import (
	"fmt"
	"strconv"
	"strings"
)

// splitCommaSeparated splits a string by commas that are not inside a
// quoted literal: "1, 'a, b', true" → ["1", "'a, b'", "true"].
func splitCommaSeparated(s string) []string {
	var out []string
	for {
		idx := indexOutsideQuotes(s, ',')
		if idx == -1 {
			break
		}
		if p := strings.TrimSpace(s[:idx]); p != "" {
			out = append(out, p)
		}
		s = s[idx+1:]
	}
	if p := strings.TrimSpace(s); p != "" {
		out = append(out, p)
	}
	return out
}

// indexOutsideQuotes returns the index of the first ch in s that is not
// inside a '...' or "..." literal, or -1.
func indexOutsideQuotes(s string, ch byte) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ch:
			return i
		}
	}
	return -1
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return (first == '\'' || first == '"') && last == first
}

// isIdentifier reports whether s is a valid database, table or column name.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// IsIdentifier is the exported form of isIdentifier, used by the storage
// layer to validate names before they become directory names.
func IsIdentifier(s string) bool { return isIdentifier(s) }

// parseLiteral parses a single literal token into a Value.
// Supports:
//   - integers:  1, 42
//   - floats:    3.14, 1e3
//   - strings:   'Alice' or "Alice" ('' escapes a quote)
//   - booleans:  true / false (case-insensitive)
//   - NULL
func parseLiteral(tok string) (Value, error) {
	s := strings.TrimSpace(tok)
	if s == "" {
		return Value{}, fmt.Errorf("empty literal")
	}

	upper := strings.ToUpper(s)

	// Boolean
	if upper == "TRUE" {
		return BoolValue(true), nil
	}
	if upper == "FALSE" {
		return BoolValue(false), nil
	}

	if upper == "NULL" {
		return NullValue(), nil
	}

	if isQuoted(s) {
		q := string(s[0])
		inner := s[1 : len(s)-1]
		return StringValue(strings.ReplaceAll(inner, q+q, q)), nil
	}

	// Try integer
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntValue(i), nil
	}

	// Try float
	if f, err := strconv.ParseFloat(s, 64); err == nil && IsFinite(f) {
		return FloatValue(f), nil
	}

	return Value{}, fmt.Errorf("cannot parse literal %q", tok)
}

// ScanStatements is a bufio.SplitFunc that yields the text before each ';'
// found outside a quoted literal. Trailing input without a ';' is dropped at
// EOF.
func ScanStatements(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if idx := indexOutsideQuotes(string(data), ';'); idx >= 0 {
		return idx + 1, data[:idx], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), nil, nil
	}
	return 0, nil, nil
}

// Terminated reports whether text ends with a ';' that is outside any
// quoted literal, ignoring trailing whitespace.
func Terminated(text string) bool {
	last := -1
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			last = i
		}
	}
	return quote == 0 && last >= 0 && strings.TrimSpace(text[last+1:]) == ""
}

// SplitStatements splits text on ';' outside quoted literals and returns
// the non-empty statements, trimmed. Text after the last ';' counts as a
// final statement.
func SplitStatements(text string) []string {
	var out []string
	for {
		idx := indexOutsideQuotes(text, ';')
		if idx == -1 {
			break
		}
		if s := strings.TrimSpace(text[:idx]); s != "" {
			out = append(out, s)
		}
		text = text[idx+1:]
	}
	if s := strings.TrimSpace(text); s != "" {
		out = append(out, s)
	}
	return out
}
