package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFollowsWrappedChain(t *testing.T) {
	base := NewError(CodeNotFound, "requisition not found", nil)
	wrapped := fmt.Errorf("load: %w", base)

	assert.True(t, Is(wrapped, CodeNotFound))
	assert.False(t, Is(wrapped, CodeForbidden))
	assert.False(t, Is(errors.New("plain"), CodeNotFound))
}

func TestInvalidTransitionNamesBothStates(t *testing.T) {
	err := NewInvalidTransition("submitted", "approved")

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidTransition, appErr.Code)
	assert.Equal(t, "submitted", appErr.Current)
	assert.Equal(t, "approved", appErr.Target)
	assert.Contains(t, err.Error(), "submitted")
	assert.Contains(t, err.Error(), "approved")
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewError(CodeInternal, "failed to save requisition", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}
