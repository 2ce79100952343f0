package service

import "errors"

var (
	// ErrInvalidInput rejects malformed schedule requests before the store
	// is touched.
	ErrInvalidInput = errors.New("invalid schedule request")

	// ErrTrialExhausted is a user-visible rejection, not a system failure:
	// the phone number has used its free trial and is not subscribed.
	ErrTrialExhausted = errors.New("free trial already used")

	// ErrDeliveryFailed marks a single failed send attempt. It never aborts
	// a reconciliation batch.
	ErrDeliveryFailed = errors.New("message delivery failed")
)
