// cartservice/cartstore/errors.go

package cartstore

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is matched by every *NotInitializedError.
var ErrNotInitialized = errors.New("cart store not initialized")

// NotInitializedError reports that the cart was reached outside a provisioned store.
type NotInitializedError struct {
	Caller string
}

func (e *NotInitializedError) Error() string {
	if e.Caller == "" {
		return "cart must be used within a provisioned cart store"
	}
	return fmt.Sprintf("%s must be used within a provisioned cart store", e.Caller)
}

func (e *NotInitializedError) Unwrap() error { return ErrNotInitialized }

// DecodeError reports a persisted cart blob that could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode cart: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
