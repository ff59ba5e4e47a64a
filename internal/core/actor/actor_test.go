package actor

import (
	"net"
	"sync"
	"testing"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/require"
)

const testObservation = `{"serial_number":"ST-00000512","type":"obs_st","hub_sn":"HB-00013030","obs":[[1588948614,0.18,0.22,0.27,144,6,1017.57,22.37,50.26,328,0.03,3,0.000000,0,0,0,2.410,1]],"firmware_revision":129}`

func freeUDPPort(t *testing.T) int {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	conn.Close()
	return port
}

func sendUDP(t *testing.T, port int, payload string) {
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte(payload))
	require.NoError(t, err)
}

// collector records every message sent to its actor.
type collector struct {
	mu       sync.Mutex
	messages []any
}

func (c *collector) props() *actor.Props {
	return actor.PropsFromFunc(func(ctx actor.Context) {
		switch ctx.Message().(type) {
		case *actor.Started, *actor.Stopping, *actor.Stopped, *actor.Restarting:
			return
		}
		c.mu.Lock()
		c.messages = append(c.messages, ctx.Message())
		c.mu.Unlock()
	})
}

func collected[T any](c *collector) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	var found []T
	for _, m := range c.messages {
		if v, ok := m.(T); ok {
			found = append(found, v)
		}
	}
	return found
}
