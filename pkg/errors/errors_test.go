package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageIncludesInternal(t *testing.T) {
	err := ErrNotFound.WithInternal(errors.New("no documents"))
	assert.Equal(t, "Resource not found: no documents", err.Error())
	assert.Equal(t, "Resource not found", ErrNotFound.Error())
}

func TestCopiesDoNotMutateSentinels(t *testing.T) {
	err := NewBadRequest("Invalid report ID").WithDetails("bad hex")

	assert.Equal(t, "Invalid report ID", err.Message)
	assert.Equal(t, "bad hex", err.Details)
	assert.Equal(t, "Invalid request", ErrBadRequest.Message)
	assert.Empty(t, ErrBadRequest.Details)
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("update report: %w", NewForbidden("Admin access required"))

	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("ctx: %w", ErrConflict)
	assert.Equal(t, http.StatusConflict, FromError(wrapped).StatusCode)

	plain := errors.New("boom")
	appErr := FromError(plain)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	assert.ErrorIs(t, appErr, plain)
}

func TestWrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := Wrap(cause, "Error saving report")

	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.ErrorIs(t, err, cause)
}
