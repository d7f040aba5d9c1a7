package device

import "errors"

var (
	// ErrNetworkNotFound is returned when a network ID is not in the registry.
	ErrNetworkNotFound = errors.New("device: network not found")

	// ErrCameraNotFound is returned when a camera ID is not in the registry.
	ErrCameraNotFound = errors.New("device: camera not found")

	// ErrNoController is returned by operations that need the sync
	// orchestrator before one has been attached.
	ErrNoController = errors.New("device: no controller attached")
)
