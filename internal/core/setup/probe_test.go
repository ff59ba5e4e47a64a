package setup

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/berfenger/weatherflow2mqtt/pkg/weatherflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPacket = `{"serial_number":"HB-00000001","type":"hub_status","firmware_revision":"35","uptime":1670133,"rssi":-62,"timestamp":1495724691,"reset_flags":"BOR,PIN,POR","seq":48,"radio_stats":[2,1,0,3]}`

func freeUDPPort(t *testing.T) int {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	conn.Close()
	return port
}

// broadcast keeps sending packets until stop is closed.
func broadcast(t *testing.T, port int, stop <-chan struct{}) {
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	require.NoError(t, err)
	go func() {
		defer conn.Close()
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				conn.Write([]byte(testPacket))
			}
		}
	}()
}

func TestProbeFindsDevice(t *testing.T) {

	assert := assert.New(t)
	port := freeUDPPort(t)
	stop := make(chan struct{})
	defer close(stop)
	broadcast(t, port, stop)

	found, err := Probe(context.Background(), "127.0.0.1", 5*time.Second, weatherflow.WithPort(port))
	assert.NoError(err)
	assert.True(found)

	// the port is released
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	assert.NoError(err)
	if conn != nil {
		conn.Close()
	}
}

func TestProbeTimeout(t *testing.T) {

	assert := assert.New(t)
	port := freeUDPPort(t)

	start := time.Now()
	found, err := Probe(context.Background(), "127.0.0.1", 200*time.Millisecond, weatherflow.WithPort(port))
	assert.NoError(err)
	assert.False(found)
	assert.GreaterOrEqual(time.Since(start), 200*time.Millisecond)
}

func TestProbeAddressInUse(t *testing.T) {

	assert := assert.New(t)
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	found, err := Probe(context.Background(), "127.0.0.1", time.Second, weatherflow.WithPort(port))
	assert.False(found)
	assert.True(errors.Is(err, weatherflow.ErrAddressInUse))
}

func TestProbeCancelled(t *testing.T) {

	assert := assert.New(t)
	port := freeUDPPort(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	found, err := Probe(ctx, "127.0.0.1", 10*time.Second, weatherflow.WithPort(port))
	assert.False(found)
	assert.ErrorIs(err, context.Canceled)

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	assert.NoError(err)
	if conn != nil {
		conn.Close()
	}
}
