package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSetsCategoryFromCode(t *testing.T) {
	err := New(CodeScheduleBuild, "weights do not normalize")
	require.Equal(t, CategoryPipeline, err.Category)
	require.Equal(t, "[SCHEDULE_BUILD_ERROR] weights do not normalize", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeIO, "flush failed", cause)
	require.ErrorIs(t, err, err)
	require.Equal(t, cause, err.Unwrap())
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(CodeCancelled, "job cancelled")
	b := New(CodeCancelled, "different message")
	require.True(t, a.Is(b))

	c := New(CodeNotFound, "missing")
	require.False(t, a.Is(c))
}

func TestIsTerminalDistinguishesControlPlaneErrors(t *testing.T) {
	require.False(t, New(CodeNotFound, "x").IsTerminal())
	require.False(t, New(CodeValidation, "x").IsTerminal())
	require.True(t, New(CodeResourceLimit, "x").IsTerminal())
	require.True(t, New(CodeGeneration, "x").IsTerminal())
}

func TestWithDetailsChains(t *testing.T) {
	err := New(CodeEncryption, "bad key").WithDetails("key length 12, want 32")
	require.Equal(t, "key length 12, want 32", err.Details)
}
