package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdimcp/jdi-mcp/internal/errors"
)

func throwableHierarchy(target *fakeTarget) (*fakeType, *fakeType) {
	throwable := target.addClass(newFakeType("java.lang.Throwable"))
	exc := newFakeType("java.lang.IllegalArgumentException")
	exc.super = throwable
	target.addClass(exc)
	return throwable, exc
}

func TestExceptionBreakpoints_SetOnThrowable(t *testing.T) {
	target := newFakeTarget()
	throwableHierarchy(target)
	reg := NewExceptionBreakpoints(testLog())

	rec, err := reg.Set(target, "java.lang.IllegalArgumentException", true, true)
	require.NoError(t, err)

	assert.Equal(t, "ex-1", rec.ID)
	assert.True(t, rec.CatchCaught)
	assert.True(t, rec.CatchUncaught)
	assert.Equal(t, "enabled", rec.StateName())
	assert.Equal(t, 1, target.liveRequests("exception"))
}

func TestExceptionBreakpoints_WildcardAlwaysAllowed(t *testing.T) {
	target := newFakeTarget()
	reg := NewExceptionBreakpoints(testLog())

	star, err := reg.Set(target, "*", true, false)
	require.NoError(t, err)
	assert.Equal(t, WildcardException, star.ClassName)

	// An empty class name is the same catch-all.
	blank, err := reg.Set(target, "", true, false)
	require.NoError(t, err)
	assert.Equal(t, star.ID, blank.ID, "catch-all requests deduplicate")
}

func TestExceptionBreakpoints_RejectsNonThrowable(t *testing.T) {
	target := newFakeTarget()
	target.addClass(newFakeType("com.example.NotAnException"))
	reg := NewExceptionBreakpoints(testLog())

	_, err := reg.Set(target, "com.example.NotAnException", true, true)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotThrowable, errors.FromError(err).Code)
}

func TestExceptionBreakpoints_RejectsNeitherCaughtNorUncaught(t *testing.T) {
	target := newFakeTarget()
	throwableHierarchy(target)
	reg := NewExceptionBreakpoints(testLog())

	_, err := reg.Set(target, "java.lang.IllegalArgumentException", false, false)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParameter, errors.FromError(err).Code)
}

func TestExceptionBreakpoints_UnknownClass(t *testing.T) {
	target := newFakeTarget()
	reg := NewExceptionBreakpoints(testLog())

	_, err := reg.Set(target, "com.example.Missing", true, true)
	require.Error(t, err)
	assert.Equal(t, errors.CodeClassNotFound, errors.FromError(err).Code)
}

func TestExceptionBreakpoints_DeduplicateByFlags(t *testing.T) {
	target := newFakeTarget()
	throwableHierarchy(target)
	reg := NewExceptionBreakpoints(testLog())

	both, err := reg.Set(target, "java.lang.IllegalArgumentException", true, true)
	require.NoError(t, err)
	same, err := reg.Set(target, "java.lang.IllegalArgumentException", true, true)
	require.NoError(t, err)
	assert.Equal(t, both.ID, same.ID)

	// Different flags are a distinct record.
	uncaughtOnly, err := reg.Set(target, "java.lang.IllegalArgumentException", false, true)
	require.NoError(t, err)
	assert.NotEqual(t, both.ID, uncaughtOnly.ID)
}

func TestExceptionBreakpoints_EnableDisableRemove(t *testing.T) {
	target := newFakeTarget()
	throwableHierarchy(target)
	reg := NewExceptionBreakpoints(testLog())

	rec, err := reg.Set(target, "java.lang.IllegalArgumentException", true, true)
	require.NoError(t, err)

	require.NoError(t, reg.Disable(rec.ID))
	assert.Equal(t, "disabled", reg.Get(rec.ID).StateName())
	require.NoError(t, reg.Enable(rec.ID))
	require.NoError(t, reg.Remove(rec.ID))
	assert.Nil(t, reg.Get(rec.ID))

	reg.ClearAll()
	assert.Empty(t, reg.All())
}
