package engine

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by every oracle operation. Callers match them with
// errors.Is; packages wrap them with context using fmt.Errorf("%w").
var (
	// ErrDecode is returned when a state buffer is too short or carries the
	// wrong discriminator for its layout.
	ErrDecode = errors.New("decode error")
	// ErrInvalidConfiguration is returned when registry counts do not match
	// the supplied accounts or handles, or when the registry has no pools.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrUnauthorizedAccess is returned when a lifecycle operation is
	// attempted by an identity the access-control layer rejects.
	ErrUnauthorizedAccess = errors.New("unauthorized access")
	// ErrArithmeticOverflow is returned when a price or the accumulator
	// leaves the unsigned 128-bit range.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrUnknownProtocol is returned for a protocol tag with no decoder.
	ErrUnknownProtocol = fmt.Errorf("%w: unknown protocol tag", ErrInvalidConfiguration)
)
