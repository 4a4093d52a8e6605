package db

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation performs one attempt of a write. attempt starts at 0.
type Operation func(attempt int) error

// RetryPredicate reports whether err is worth another attempt.
type RetryPredicate func(err error) bool

const DefaultMaxRetries = 3

// ErrRetriesExhausted wraps the last error once every attempt failed on a retryable error.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Try runs op, retrying on duplicate key errors. Callers regenerate the
// conflicting value (slug suffix) or re-read the winner of an upsert race
// based on the attempt number.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsMongoDuplicateKeyError)
}

// WithRetries executes op up to maxRetries+1 times while shouldRetry holds.
func WithRetries(op Operation, maxRetries int, shouldRetry RetryPredicate) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op(attempt)
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}
		if attempt < maxRetries {
			time.Sleep(time.Duration(25*(attempt+1)) * time.Millisecond)
		}
	}
	return errors.Join(ErrRetriesExhausted, err)
}

// IsMongoDuplicateKeyError checks for a duplicate key error (code 11000),
// including the ones wrapped in write and bulk write exceptions.
func IsMongoDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
