package inventory

import "errors"

var (
	// ErrSourceUnavailable is returned by a container reader when the container
	// is not currently loaded. Callers skip the container.
	ErrSourceUnavailable = errors.New("container source unavailable")

	// ErrScopeInvalidated marks work discarded because its scope stopped being active.
	ErrScopeInvalidated = errors.New("scope invalidated")

	// ErrReconciliationFallback marks a transition that could not be explained
	// by a move and was reported as Removed/Added instead.
	ErrReconciliationFallback = errors.New("reconciliation fallback")

	// ErrSchedulerFault wraps unexpected failures inside the refresh loop.
	ErrSchedulerFault = errors.New("scheduler fault")

	// ErrUnknownScope is returned for a malformed scope id or a scope the
	// monitor does not track.
	ErrUnknownScope = errors.New("unknown scope")

	// ErrUnknownContainer is returned when parsing an unknown container name.
	ErrUnknownContainer = errors.New("unknown container kind")
)
