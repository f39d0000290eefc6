package errors

import (
	"database/sql"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := NotFound("course not found")
	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.False(t, stderrors.Is(err, ErrValidation))
	assert.Equal(t, "course not found", err.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestBackendKeepsCause(t *testing.T) {
	err := Backend(sql.ErrConnDone, "failed to list courses")
	assert.True(t, stderrors.Is(err, ErrBackend))
	assert.True(t, stderrors.Is(err, sql.ErrConnDone))
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.Contains(t, err.Error(), "failed to list courses")
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Nil(t, FromError(nil))

	typed := Validation("credits must be at least 1")
	assert.Same(t, typed, FromError(typed))
}
