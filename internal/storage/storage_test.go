package storage

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindsFollowCodes(t *testing.T) {
	tests := []struct {
		code Code
		kind Kind
	}{
		{CodeTableNotFound, KindNotFound},
		{CodeTypeMismatch, KindValidation},
		{CodeDuplicateKey, KindConstraint},
		{CodeNullPrimaryKey, KindValidation},
		{CodeWalWriteFailed, KindStorage},
		{CodeMalformedPredicate, KindPredicate},
	}
	for _, tt := range tests {
		err := Errorf(tt.code, "boom")
		assert.Equal(t, tt.kind, err.Kind, tt.code)
		assert.Equal(t, tt.kind, KindOf(err), tt.code)
	}
}

func TestWrapKeepsChain(t *testing.T) {
	err := Wrap(CodeWalWriteFailed, io.ErrShortWrite, "append to %s", "log.wal")
	wrapped := fmt.Errorf("insert: %w", err)

	assert.Equal(t, CodeWalWriteFailed, CodeOf(wrapped))
	assert.Equal(t, KindStorage, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, io.ErrShortWrite))
	assert.True(t, errors.Is(wrapped, &Error{Code: CodeWalWriteFailed}))
	assert.False(t, errors.Is(wrapped, &Error{Code: CodeDuplicateKey}))
	assert.Equal(t, "append to log.wal: short write", err.Error())

	assert.Nil(t, Wrap(CodeIOFailure, nil, "noop"))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.False(t, IsCode(errors.New("plain"), CodeTypeMismatch))
}

func TestHelpers(t *testing.T) {
	err := TypeMismatch("id", "INT", "TEXT")
	assert.Equal(t, CodeTypeMismatch, err.Code)
	assert.Contains(t, err.Error(), `"id"`)

	assert.Equal(t, KindNotFound, TableNotFound("db", "t").Kind)
	assert.Equal(t, CodeDatabaseNotFound, DatabaseNotFound("db").Code)
}
