package actor

import (
	"context"
	"testing"
	"time"

	adactor "github.com/berfenger/weatherflow2mqtt/internal/adapter/actor"
	"github.com/berfenger/weatherflow2mqtt/internal/adapter/store"
	"github.com/berfenger/weatherflow2mqtt/internal/config"
	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/berfenger/weatherflow2mqtt/internal/core/setup"
	"github.com/berfenger/weatherflow2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func alwaysFound(context.Context, string) (bool, error) {
	return true, nil
}

func startMaster(t *testing.T, cfg config.Config, prober setup.Prober, legacy []domain.ImportConfig) (*actor.RootContext, *actor.PID, *store.Store) {
	as := actor.NewActorSystem()
	t.Cleanup(as.Shutdown)
	root := as.Root

	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	entries, err := store.NewStore(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { entries.Close() })

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, entries, prober, legacy, func() *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, logger)
		}, logger)
	})
	pid, err := root.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)
	t.Cleanup(func() { root.Stop(pid) })
	return root, pid, entries
}

func setupRequest(t *testing.T, root *actor.RootContext, pid *actor.PID, host *string) domain.FlowResult {
	res, err := root.RequestFuture(pid, domain.SetupRequest{Host: host}, 5*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.SetupResponse)
	require.True(t, ok)
	require.NoError(t, resp.GetResponseError())
	return resp.Result
}

func TestMasterActor(t *testing.T) {

	cfg := util.LoadTestConfig()
	root, pid, _ := startMaster(t, cfg, alwaysFound, nil)

	res, err := root.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	require.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, healthResp.Healthy, "healthy is true")
}

func TestMasterSetupAndRemoveEntry(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Listener.Port = freeUDPPort(t)
	root, pid, entries := startMaster(t, cfg, alwaysFound, nil)

	host := "127.0.0.1"
	result := setupRequest(t, root, pid, &host)
	assert.Equal(domain.RESULT_TYPE_CREATE_ENTRY, result.Type)
	assert.Equal("WeatherFlow (127.0.0.1)", result.Title)
	require.NotNil(t, result.Entry)
	assert.Equal(host, result.Entry.Host)

	hosts, err := entries.Hosts(context.Background())
	assert.NoError(err)
	assert.Equal([]string{host}, hosts)

	// the station for the new entry takes part in health checks
	res, err := root.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	require.NoError(t, err)
	assert.True(res.(domain.ActorHealthResponse).Healthy)

	res, err = root.RequestFuture(pid, domain.ListStationDevicesRequest{EntryId: result.Entry.Id}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.Empty(res.(domain.ListStationDevicesResponse).Sensors)

	again := setupRequest(t, root, pid, &host)
	assert.Equal(domain.RESULT_TYPE_ABORT, again.Type)
	assert.Equal(setup.ABORT_SINGLE_INSTANCE_ALLOWED, again.Reason)

	res, err = root.RequestFuture(pid, domain.ListEntriesRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.Len(res.(domain.ListEntriesResponse).Entries, 1)

	res, err = root.RequestFuture(pid, domain.RemoveEntryRequest{Id: result.Entry.Id}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.True(res.(domain.RemoveEntryResponse).Removed)

	res, err = root.RequestFuture(pid, domain.ListStationDevicesRequest{EntryId: result.Entry.Id}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.ErrorIs(res.(domain.ListStationDevicesResponse).GetResponseError(), ErrStationNotFound)

	res, err = root.RequestFuture(pid, domain.ListEntriesRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.Empty(res.(domain.ListEntriesResponse).Entries)
}

func TestMasterSetupFormWithoutInput(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	root, pid, entries := startMaster(t, cfg, alwaysFound, nil)

	result := setupRequest(t, root, pid, nil)
	assert.Equal(domain.RESULT_TYPE_FORM, result.Type)

	hosts, err := entries.Hosts(context.Background())
	assert.NoError(err)
	assert.Empty(hosts)
}

func TestMasterSetupUsesListenerHost(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Listener.Host = "127.0.0.1"
	probed := make(chan string, 1)
	prober := func(_ context.Context, host string) (bool, error) {
		probed <- host
		return true, nil
	}
	root, pid, _ := startMaster(t, cfg, prober, nil)

	result := setupRequest(t, root, pid, nil)
	assert.Equal(domain.RESULT_TYPE_FORM, result.Type)
	require.NotNil(t, result.Data)
	assert.Equal("127.0.0.1", result.Data.Host)
	assert.Equal("127.0.0.1", <-probed)
}

func TestMasterImportsLegacyConfig(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Listener.Port = freeUDPPort(t)
	legacy := []domain.ImportConfig{{Host: "127.0.0.1", Name: "Garden"}}
	root, pid, _ := startMaster(t, cfg, alwaysFound, legacy)

	assert.Eventually(func() bool {
		res, err := root.RequestFuture(pid, domain.ListEntriesRequest{}, 2*time.Second).Result()
		if err != nil {
			return false
		}
		list := res.(domain.ListEntriesResponse).Entries
		return len(list) == 1 && list[0].Title == "Garden (127.0.0.1)" && list[0].Source == domain.SOURCE_IMPORT
	}, 5*time.Second, 100*time.Millisecond)
}
