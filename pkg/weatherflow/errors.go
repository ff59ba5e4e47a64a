package weatherflow

import (
	"errors"
	"fmt"
)

// ErrAddressInUse is returned when the UDP port on the requested host is
// already bound by another process.
var ErrAddressInUse = errors.New("weatherflow: address already in use")

// ListenerError reports any other failure to start the UDP listener.
type ListenerError struct {
	Address string
	Err     error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("weatherflow: unable to start listener on %s: %v", e.Address, e.Err)
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}
