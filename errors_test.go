package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("invalid parameter")))
	assert.False(t, IsTransient(context.Canceled))

	assert.True(t, IsTransient(awserr.NewRequestFailure(awserr.New("InternalError", "oops", nil), 500, "")))
	assert.True(t, IsTransient(awserr.NewRequestFailure(awserr.New("Throttling", "slow down", nil), 429, "")))
	assert.True(t, IsTransient(awserr.New("ThrottlingException", "slow down", nil)))

	// wrapped errors keep their classification
	wrapped := fmt.Errorf("download object: %w", awserr.New("RequestTimeout", "timeout", nil))
	assert.True(t, IsTransient(wrapped))

	assert.False(t, IsTransient(awserr.NewRequestFailure(awserr.New("AccessDenied", "nope", nil), 403, "")))
}

func TestUnsupportedImageTypeError(t *testing.T) {
	err := NewUnsupportedImageTypeError("landing/notes.txt", "text/plain")

	var unsupported *UnsupportedImageTypeError
	assert.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "landing/notes.txt", unsupported.Key)
	assert.Contains(t, err.Error(), "text/plain")
}
