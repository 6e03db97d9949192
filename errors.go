package indexer

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go/aws/awserr"
)

var ErrNoRecord = errors.New("no record for the given file identifier")

// UnsupportedImageTypeError marks a landing object whose bytes are not
// an image. The pipeline skips such objects instead of failing the run.
type UnsupportedImageTypeError struct {
	Key      string
	MimeType string
}

func (e *UnsupportedImageTypeError) Error() string {
	return fmt.Sprintf("unsupported image type %s for object %s", e.MimeType, e.Key)
}

func NewUnsupportedImageTypeError(key, mimeType string) error {
	return &UnsupportedImageTypeError{
		Key:      key,
		MimeType: mimeType,
	}
}

// transient AWS error codes that are worth another attempt
var retryableAWSCodes = map[string]struct{}{
	"RequestError":                           {},
	"RequestTimeout":                         {},
	"Throttling":                             {},
	"ThrottlingException":                    {},
	"ProvisionedThroughputExceeded":          {},
	"ProvisionedThroughputExceededException": {},
	"SlowDown":                               {},
	"ServiceUnavailable":                     {},
	"InternalError":                          {},
}

// IsTransient reports whether an error came from a remote hiccup rather
// than from bad input. Transient failures are retried inside a run;
// everything else aborts the batch.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		if reqErr.StatusCode() >= 500 || reqErr.StatusCode() == 429 {
			return true
		}
	}

	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		if _, ok := retryableAWSCodes[awsErr.Code()]; ok {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
