package indexer

import (
	"context"
	"strings"
	"time"
)

// SleepWithContext will return whenever the slept time reached or context done
// It returns true if the context is done
func SleepWithContext(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return false
	case <-ctx.Done():
		return true
	}
}

// NormalizePrefix appends a trailing slash so that prefix matching never
// captures sibling folders (landing/ vs landing-old/).
func NormalizePrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

// RelativeKey strips the prefix from an object key, returning the suffix
// path that stays stable when the object moves between prefixes.
func RelativeKey(prefix, key string) string {
	return strings.TrimPrefix(key, NormalizePrefix(prefix))
}

// JoinPrefix places a relative suffix under a prefix.
func JoinPrefix(prefix, rel string) string {
	return NormalizePrefix(prefix) + rel
}

// RetryWithBackoff runs fn up to attempts times. Only transient failures
// are retried; the sleep doubles after every attempt and respects
// context cancellation.
func RetryWithBackoff(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}

		if !IsTransient(err) {
			return err
		}

		if i == attempts-1 {
			break
		}

		if done := SleepWithContext(ctx, backoff<<uint(i)); done {
			return ctx.Err()
		}
	}

	return err
}
