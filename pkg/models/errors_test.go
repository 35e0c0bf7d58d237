package models

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")

	transient := NewTransientBackendError("search", cause)
	assert.True(t, IsTransient(transient))
	assert.True(t, IsTransient(fmt.Errorf("query: %w", transient)))
	assert.ErrorIs(t, transient, cause)
	assert.Same(t, transient, NewTransientBackendError("upsert", transient))
	assert.Nil(t, NewTransientBackendError("upsert", nil))
	assert.True(t, IsTransient(context.DeadlineExceeded))

	fatal := NewFatalConfigError("search index", cause)
	assert.True(t, IsFatalConfig(fatal))
	assert.False(t, IsTransient(fatal))

	assert.True(t, IsNotFound(fmt.Errorf("get: %w", NewNotFoundError("product", 3))))
	assert.EqualError(t, NewNotFoundError("product", 3), "product 3 not found")
	assert.True(t, IsValidation(NewValidationError("name", "is required")))
	assert.False(t, IsValidation(cause))
}
