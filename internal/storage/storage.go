// Package storage holds the error taxonomy shared by the table store.
//
// Every failure that leaves the storage layer is an *Error carrying a Kind
// (what class of problem it is) and a Code (which specific problem). The
// engine turns these into tagged results; callers branch on them with
// KindOf, CodeOf or errors.As.
package storage

import (
	"errors"
	"fmt"
)

// Kind is the coarse class of a storage error.
type Kind string

const (
	KindNotFound   Kind = "NotFound"
	KindValidation Kind = "ValidationError"
	KindConstraint Kind = "ConstraintViolation"
	KindStorage    Kind = "StorageError"
	KindPredicate  Kind = "PredicateError"
)

// Code identifies one specific failure.
type Code string

const (
	CodeTableNotFound    Code = "TableNotFound"
	CodeDatabaseNotFound Code = "DatabaseNotFound"

	CodeColumnCountMismatch       Code = "ColumnCountMismatch"
	CodeTypeMismatch              Code = "TypeMismatch"
	CodeSchemaMissing             Code = "SchemaMissing"
	CodeSchemaDuplicate           Code = "SchemaDuplicate"
	CodeSchemaInvalidType         Code = "SchemaInvalidType"
	CodeSchemaMultiplePrimaryKeys Code = "SchemaMultiplePrimaryKeys"
	CodeUnknownColumn             Code = "UnknownColumn"
	CodeInvalidName               Code = "InvalidName"
	CodeSyntaxError               Code = "SyntaxError"
	CodeNoDatabaseSelected        Code = "NoDatabaseSelected"

	CodeNullPrimaryKey Code = "NullPrimaryKey"
	CodeDuplicateKey   Code = "DuplicateKey"
	CodeAlreadyExists  Code = "AlreadyExists"

	CodeWalWriteFailed   Code = "WalWriteFailed"
	CodeCorruptRecord    Code = "CorruptRecord"
	CodeIndexUnavailable Code = "IndexUnavailable"
	CodeIOFailure        Code = "IOFailure"

	CodeMalformedPredicate Code = "MalformedPredicate"
)

var codeKinds = map[Code]Kind{
	CodeTableNotFound:    KindNotFound,
	CodeDatabaseNotFound: KindNotFound,

	CodeColumnCountMismatch:       KindValidation,
	CodeTypeMismatch:              KindValidation,
	CodeSchemaMissing:             KindValidation,
	CodeSchemaDuplicate:           KindValidation,
	CodeSchemaInvalidType:         KindValidation,
	CodeSchemaMultiplePrimaryKeys: KindValidation,
	CodeUnknownColumn:             KindValidation,
	CodeInvalidName:               KindValidation,
	CodeSyntaxError:               KindValidation,
	CodeNoDatabaseSelected:        KindValidation,
	CodeNullPrimaryKey:            KindValidation,

	CodeDuplicateKey:  KindConstraint,
	CodeAlreadyExists: KindConstraint,

	CodeWalWriteFailed:   KindStorage,
	CodeCorruptRecord:    KindStorage,
	CodeIndexUnavailable: KindStorage,
	CodeIOFailure:        KindStorage,

	CodeMalformedPredicate: KindPredicate,
}

// KindFor returns the kind a code belongs to.
func KindFor(c Code) Kind {
	if k, ok := codeKinds[c]; ok {
		return k
	}
	return KindStorage
}

// Error is a tagged storage failure.
type Error struct {
	Kind Kind
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return string(e.Code) + ": " + e.Err.Error()
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Code, so sentinel-style checks
// like errors.Is(err, &storage.Error{Code: storage.CodeDuplicateKey}) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Errorf builds an *Error for code with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Kind: KindFor(code), Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error for code around err. A nil err yields nil.
func Wrap(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindFor(code), Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// TypeMismatch reports a value that does not fit its column.
func TypeMismatch(column, expected, actual string) *Error {
	return Errorf(CodeTypeMismatch, "type mismatch for column %q: expected %s, got %s", column, expected, actual)
}

// TableNotFound reports a missing table.
func TableNotFound(db, table string) *Error {
	return Errorf(CodeTableNotFound, "table %q not found in database %q", table, db)
}

// DatabaseNotFound reports a missing database.
func DatabaseNotFound(db string) *Error {
	return Errorf(CodeDatabaseNotFound, "database %q not found", db)
}
