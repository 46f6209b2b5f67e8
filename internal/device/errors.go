package device

import "errors"

var (
	// ErrDeviceNotFound indicates a lookup for a device the repository
	// does not hold.
	ErrDeviceNotFound = errors.New("device: not found")
)
