package hook

import "errors"

var (
	// ErrAlreadyRunning is returned when a second bridge is requested while one is active
	ErrAlreadyRunning = errors.New("hook bridge already running")

	// ErrNotRunning is returned when releasing a bridge the owner does not hold
	ErrNotRunning = errors.New("hook bridge not running")
)
