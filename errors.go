package liknorm

import (
	"errors"

	"github.com/ieee0824/liknorm-go/family"
)

var (
	// ErrUnknownFamily is returned when a family name is not registered.
	ErrUnknownFamily = family.ErrUnknownFamily

	// ErrInvalidDomain rejects malformed inputs before any quadrature runs.
	ErrInvalidDomain = errors.New("invalid domain")

	// ErrIntegrationFailure reports that the mode or the moments could not be
	// computed within the machine's node and iteration budget. No moments are
	// returned alongside it.
	ErrIntegrationFailure = errors.New("integration failure")

	// ErrMachineDestroyed is returned by Integrate after Destroy.
	ErrMachineDestroyed = errors.New("machine destroyed")
)
