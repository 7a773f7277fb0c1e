package gateway

import "errors"

// Sentinel errors for gateway operations.
// Check with errors.Is to branch on failure class.
var (
	// ErrNoSources indicates the gateway was built with no listener sources.
	ErrNoSources = errors.New("gateway: no sources configured")

	// ErrNoPublisher indicates the gateway was built without a publisher.
	ErrNoPublisher = errors.New("gateway: no publisher configured")

	// ErrDuplicateSource indicates two sources share a name.
	ErrDuplicateSource = errors.New("gateway: duplicate source name")

	// ErrUnknownListener indicates a settings update named a listener
	// that is not configured.
	ErrUnknownListener = errors.New("gateway: unknown listener")
)
