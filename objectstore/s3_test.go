package objectstore

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(awserr.New("NotFound", "not found", nil)))
	assert.True(t, isNotFound(awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)))
	assert.False(t, isNotFound(awserr.New("AccessDenied", "nope", nil)))
	assert.False(t, isNotFound(errors.New("plain error")))
}
