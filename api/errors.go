package api

import "errors"

var (
	// ErrNotFound reports a named network, container or interface that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAttachment reports container network attachments that do not match the
	// expected topology (missing MAC, unresolvable interface, router without
	// two distinct networks).
	ErrAttachment = errors.New("attachment inconsistency")

	// ErrRuleInstall reports a packet filter rule that could not be installed.
	ErrRuleInstall = errors.New("nat rule install failed")

	// ErrRouteInstall reports a static route that could not be installed.
	ErrRouteInstall = errors.New("route install failed")

	// ErrRuntime reports a failed call to the container runtime itself.
	ErrRuntime = errors.New("runtime call failed")
)
