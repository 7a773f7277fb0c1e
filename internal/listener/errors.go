package listener

import "errors"

// Domain-specific errors for listener operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInit is returned (wrapped) when a listener cannot be constructed.
	// The driver must not call any operation on a listener whose
	// constructor returned this error.
	ErrInit = errors.New("listener: init failed")

	// ErrMalformedFrame is returned by codecs for frames with the wrong
	// token count or non-integer tokens. Transports log it as a warning
	// and carry on.
	ErrMalformedFrame = errors.New("listener: misformed frame")
)
