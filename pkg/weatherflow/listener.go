package weatherflow

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	DEFAULT_HOST = "0.0.0.0"
	DEFAULT_PORT = 50222

	EVENT_DEVICE_DISCOVERED = "device_discovered"

	readTimeout = 500 * time.Millisecond
	bufferSize  = 4096
)

type ListenerOption func(*Listener)

func WithPort(port int) ListenerOption {
	return func(l *Listener) {
		l.port = port
	}
}

func WithLogger(logger *zap.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// Listener receives WeatherFlow UDP broadcasts and keeps a device model per
// serial number.
type Listener struct {
	host   string
	port   int
	logger *zap.Logger

	mu      sync.Mutex
	conn    *net.UDPConn
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	devices map[string]*device

	discovered emitter[Device]
}

func NewListener(host string, opts ...ListenerOption) *Listener {
	if host == "" {
		host = DEFAULT_HOST
	}
	l := &Listener{
		host:    host,
		port:    DEFAULT_PORT,
		logger:  zap.NewNop(),
		devices: make(map[string]*device),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Listener) Address() string {
	return net.JoinHostPort(l.host, strconv.Itoa(l.port))
}

func (l *Listener) IsListening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Start binds the UDP socket and starts the receive loop. The loop stops
// when ctx is done or Stop is called.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp4", l.Address())
	if err != nil {
		return &ListenerError{Address: l.Address(), Err: err}
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return ErrAddressInUse
		}
		return &ListenerError{Address: l.Address(), Err: err}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.conn = conn
	l.cancel = cancel
	l.wg.Add(1)
	go l.receive(loopCtx, conn)

	l.logger.Info("udp listener started", zap.String("address", l.Address()))
	return nil
}

// Stop closes the socket and waits for the receive loop to exit. It is safe
// to call Stop on a listener that never started.
func (l *Listener) Stop() {
	l.mu.Lock()
	conn, cancel := l.conn, l.cancel
	l.conn, l.cancel = nil, nil
	l.mu.Unlock()

	if conn == nil {
		return
	}
	cancel()
	conn.Close()
	l.wg.Wait()
	l.logger.Info("udp listener stopped", zap.String("address", l.Address()))
}

// On registers a listener event handler. The only listener event is
// "device_discovered".
func (l *Listener) On(event string, fn func(Device)) func() {
	return l.discovered.on(event, fn)
}

func (l *Listener) Devices() []Device {
	l.mu.Lock()
	defer l.mu.Unlock()
	devices := make([]Device, 0, len(l.devices))
	for _, d := range l.devices {
		devices = append(devices, d)
	}
	return devices
}

func (l *Listener) receive(ctx context.Context, conn *net.UDPConn) {
	defer l.wg.Done()

	buffer := make([]byte, bufferSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, _, err := conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Error("udp read error", zap.Error(err))
			continue
		}
		l.Handle(buffer[:n])
	}
}

// Handle processes one raw datagram. It is exported so that packets can be
// replayed without a socket.
func (l *Listener) Handle(data []byte) {
	msg, err := parseMessage(data)
	if err != nil {
		l.logger.Warn("dropping malformed packet", zap.Error(err))
		return
	}
	if !isKnownMessage(msg.Type) {
		l.logger.Debug("ignoring unknown message type", zap.String("type", msg.Type), zap.String("serial", msg.SerialNumber))
		return
	}

	l.mu.Lock()
	d, known := l.devices[msg.SerialNumber]
	if !known {
		d = newDevice(msg.SerialNumber, msg.HubSerialNumber)
		l.devices[msg.SerialNumber] = d
	}
	l.mu.Unlock()

	d.apply(msg)

	if !known {
		l.logger.Info("device discovered", zap.String("serial", d.serial), zap.String("model", d.model))
		l.discovered.emit(EVENT_DEVICE_DISCOVERED, d)
	}
}
