package hooks

import "errors"

var (
	// ErrNotInitialized is returned by every engine operation before
	// Initialize or after Uninitialize.
	ErrNotInitialized = errors.New("hook engine not initialized")

	// ErrAlreadyInitialized is returned by Initialize on a running engine.
	ErrAlreadyInitialized = errors.New("hook engine already initialized")

	// ErrAlreadyCreated is returned when a hook already exists for the
	// target address. At most one record may exist per target.
	ErrAlreadyCreated = errors.New("hook already created for target")

	// ErrNotCreated is returned when no hook record exists for the target.
	ErrNotCreated = errors.New("no hook created for target")

	// ErrAlreadyEnabled is returned by Enable on an enabled hook.
	ErrAlreadyEnabled = errors.New("hook already enabled")

	// ErrAlreadyDisabled is returned by Disable on a hook that is not enabled.
	ErrAlreadyDisabled = errors.New("hook already disabled")
)
