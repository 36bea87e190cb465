package sql

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPredicate is wrapped by every error returned from
// ParsePredicate and ParseAssignments.
var ErrMalformedPredicate = errors.New("malformed predicate")

// Op is a comparison operator. Only equality is supported.
type Op string

const OpEq Op = "="

// Predicate is a single "column op literal" condition used for filtering,
// update targeting and deletion targeting.
type Predicate struct {
	Column  string
	Op      Op
	Literal Value
}

// Eq builds the predicate column = lit.
func Eq(column string, lit Value) Predicate {
	return Predicate{Column: column, Op: OpEq, Literal: lit}
}

// String renders the predicate in its on-disk form, e.g. id=1 or name='a'.
func (p Predicate) String() string {
	op := p.Op
	if op == "" {
		op = OpEq
	}
	return p.Column + string(op) + FormatLiteral(p.Literal)
}

// Assignment is one "column = value" item of an UPDATE ... SET list.
type Assignment struct {
	Column string
	Value  Value
}

func (a Assignment) String() string {
	return a.Column + "=" + FormatLiteral(a.Value)
}

// FormatAssignments renders a SET list in its on-disk form.
func FormatAssignments(assigns []Assignment) string {
	parts := make([]string, len(assigns))
	for i, a := range assigns {
		parts[i] = a.String()
	}
	return strings.Join(parts, ",")
}

// FormatLiteral renders v so that parseLiteral reads it back unchanged.
func FormatLiteral(v Value) string {
	switch v.Type {
	case TypeString:
		return "'" + strings.ReplaceAll(v.S, "'", "''") + "'"
	case TypeFloat:
		s := v.String()
		if !strings.ContainsAny(s, ".eENI") {
			s += ".0"
		}
		return s
	default:
		return v.String()
	}
}

// ParsePredicate parses the on-disk form "column=literal". The literal may
// be quoted or unquoted; an unquoted literal that is not a number, boolean
// or NULL is taken as text.
func ParsePredicate(s string) (Predicate, error) {
	col, lit, err := splitEquality(s)
	if err != nil {
		return Predicate{}, err
	}
	return Eq(col, lit), nil
}

// ParseAssignments parses a comma separated list of "column=literal".
func ParseAssignments(s string) ([]Assignment, error) {
	defs := splitCommaSeparated(s)
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: empty SET clause", ErrMalformedPredicate)
	}

	out := make([]Assignment, 0, len(defs))
	for _, def := range defs {
		col, lit, err := splitEquality(def)
		if err != nil {
			return nil, err
		}
		out = append(out, Assignment{Column: col, Value: lit})
	}
	return out, nil
}

func splitEquality(s string) (string, Value, error) {
	idx := indexOutsideQuotes(s, '=')
	if idx == -1 {
		return "", Value{}, fmt.Errorf("%w: %q has no '='", ErrMalformedPredicate, s)
	}

	col := strings.TrimSpace(s[:idx])
	raw := strings.TrimSpace(s[idx+1:])
	if !isIdentifier(col) {
		return "", Value{}, fmt.Errorf("%w: invalid column in %q", ErrMalformedPredicate, s)
	}
	if raw == "" {
		return "", Value{}, fmt.Errorf("%w: missing value in %q", ErrMalformedPredicate, s)
	}

	lit, err := parseLiteral(raw)
	if err != nil {
		if raw[0] == '\'' || raw[0] == '"' {
			return "", Value{}, fmt.Errorf("%w: %v", ErrMalformedPredicate, err)
		}
		lit = StringValue(raw)
	}
	return col, lit, nil
}
