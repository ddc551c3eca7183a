package errors

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := New(ErrConfigInvalid, "unknown config key")
	assert.Equal(t, "CONFIG_INVALID: unknown config key", err.Error())

	wrapped := NewInputError("cannot read input.py", fs.ErrNotExist)
	assert.Contains(t, wrapped.Error(), "INPUT_READ_ERROR: cannot read input.py")
	assert.Contains(t, wrapped.Error(), fs.ErrNotExist.Error())
}

func TestUnwrapAndIsErrorType(t *testing.T) {
	err := NewOutputError("cannot write out.py", fs.ErrPermission)
	outer := fmt.Errorf("run failed: %w", err)

	assert.ErrorIs(t, outer, fs.ErrPermission)
	assert.True(t, IsErrorType(outer, ErrOutputWrite))
	assert.False(t, IsErrorType(outer, ErrInputRead))
	assert.False(t, IsErrorType(fs.ErrPermission, ErrOutputWrite))
}

func TestContext(t *testing.T) {
	err := New(ErrConfigInvalid, "bad").WithContext("key", "use_hex")

	v, ok := err.GetContext("key")
	require.True(t, ok)
	assert.Equal(t, "use_hex", v)

	_, ok = err.GetContext("missing")
	assert.False(t, ok)
}

func TestIsConfigError(t *testing.T) {
	assert.True(t, IsConfigError(New(ErrConfigParse, "x")))
	assert.True(t, IsConfigError(New(ErrConfigInvalid, "x")))
	assert.False(t, IsConfigError(New(ErrMapRead, "x")))
}
