package changewatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializationErrorUnwraps(t *testing.T) {
	inner := errors.New("permission denied")
	err := &InitializationError{Err: inner}
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "permission denied")
}

func TestWatchFailedUnwraps(t *testing.T) {
	inner := errors.New("no such file or directory")
	err := &WatchFailed{Path: "/tmp/missing", Errno: inner}
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "/tmp/missing")
}

func TestInternalErrorUnwraps(t *testing.T) {
	inner := errors.New("unexpected errno")
	err := &InternalError{Errno: inner}
	require.ErrorIs(t, err, inner)
}

func TestInvalidTargetMessage(t *testing.T) {
	err := &InvalidTarget{Path: "relative", Reason: "must be absolute"}
	require.Contains(t, err.Error(), "relative")
	require.Contains(t, err.Error(), "must be absolute")
}

func TestAlreadyWatchingMessage(t *testing.T) {
	err := &AlreadyWatching{Path: "/tmp/x"}
	require.Contains(t, err.Error(), "/tmp/x")
}

func TestAlreadyClosedMessage(t *testing.T) {
	err := &AlreadyClosed{}
	require.NotEmpty(t, err.Error())
}

func TestCallbackFailureMessage(t *testing.T) {
	err := &CallbackFailure{Message: "index out of range"}
	require.Contains(t, err.Error(), "index out of range")
}
