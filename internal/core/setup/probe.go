package setup

import (
	"context"
	"time"

	"github.com/berfenger/weatherflow2mqtt/pkg/weatherflow"
)

const DEFAULT_PROBE_TIMEOUT = 10 * time.Second

// Prober reports whether at least one device announces itself on host.
type Prober func(ctx context.Context, host string) (bool, error)

// Probe binds a scoped listener to host and waits for the first discovered
// device. A timeout is not an error, it yields false. The listener is
// released on every path.
func Probe(ctx context.Context, host string, timeout time.Duration, opts ...weatherflow.ListenerOption) (bool, error) {
	if timeout <= 0 {
		timeout = DEFAULT_PROBE_TIMEOUT
	}
	listener := weatherflow.NewListener(host, opts...)

	found := make(chan struct{}, 1)
	cancel := listener.On(weatherflow.EVENT_DEVICE_DISCOVERED, func(weatherflow.Device) {
		select {
		case found <- struct{}{}:
		default:
		}
	})
	defer cancel()

	if err := listener.Start(ctx); err != nil {
		return false, err
	}
	defer listener.Stop()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-found:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// NewProber fixes the timeout and listener options of Probe.
func NewProber(timeout time.Duration, opts ...weatherflow.ListenerOption) Prober {
	return func(ctx context.Context, host string) (bool, error) {
		return Probe(ctx, host, timeout, opts...)
	}
}
