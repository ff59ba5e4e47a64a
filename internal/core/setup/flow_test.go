package setup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/berfenger/weatherflow2mqtt/pkg/weatherflow"
	"github.com/stretchr/testify/assert"
)

type staticHosts []string

func (h staticHosts) Hosts(context.Context) ([]string, error) {
	return h, nil
}

type fakeProbe struct {
	found bool
	err   error
	calls []string
}

func (p *fakeProbe) probe(_ context.Context, host string) (bool, error) {
	p.calls = append(p.calls, host)
	return p.found, p.err
}

func newFlow(hosts staticHosts, probe *fakeProbe, tracker *Tracker) *Flow {
	if tracker == nil {
		tracker = NewTracker()
	}
	tracker.Register("flow-1", nil)
	return &Flow{Id: "flow-1", Hosts: hosts, Probe: probe.probe, Tracker: tracker}
}

func host(h string) *string {
	return &h
}

func TestUserStepConfiguredHostAborts(t *testing.T) {

	assert := assert.New(t)
	probe := &fakeProbe{found: true}
	flow := newFlow(staticHosts{"0.0.0.0"}, probe, nil)

	result, err := flow.StepUser(context.Background(), host("0.0.0.0"))
	assert.NoError(err)
	assert.Equal(domain.RESULT_TYPE_ABORT, result.Type)
	assert.Equal(ABORT_SINGLE_INSTANCE_ALLOWED, result.Reason)
	assert.Empty(probe.calls)
}

func TestUserStepNoInputWithDefaultConfiguredShowsForm(t *testing.T) {

	assert := assert.New(t)
	probe := &fakeProbe{found: true}
	flow := newFlow(staticHosts{"0.0.0.0"}, probe, nil)

	result, err := flow.StepUser(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(domain.RESULT_TYPE_FORM, result.Type)
	assert.Equal(STEP_USER, result.StepId)
	assert.Empty(probe.calls)
}

func TestUserStepNoInputProbesDefaultAndShowsForm(t *testing.T) {

	assert := assert.New(t)
	probe := &fakeProbe{found: true}
	flow := newFlow(nil, probe, nil)

	result, err := flow.StepUser(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(domain.RESULT_TYPE_FORM, result.Type)
	assert.Equal([]string{"0.0.0.0"}, probe.calls)
}

func TestUserStepCreatesEntry(t *testing.T) {

	assert := assert.New(t)
	probe := &fakeProbe{found: true}
	flow := newFlow(nil, probe, nil)

	result, err := flow.StepUser(context.Background(), host("0.0.0.0"))
	assert.NoError(err)
	assert.Equal(domain.RESULT_TYPE_CREATE_ENTRY, result.Type)
	assert.Equal("WeatherFlow", result.Title)
	assert.Equal(domain.SOURCE_USER, result.Source)
	assert.Equal("0.0.0.0", result.Data.Host)

	result, err = flow.StepUser(context.Background(), host("192.168.1.20"))
	assert.NoError(err)
	assert.Equal("WeatherFlow (192.168.1.20)", result.Title)
}

func TestUserStepNoDevices(t *testing.T) {

	assert := assert.New(t)
	flow := newFlow(nil, &fakeProbe{found: false}, nil)

	result, err := flow.StepUser(context.Background(), host("0.0.0.0"))
	assert.NoError(err)
	assert.Equal(domain.RESULT_TYPE_ABORT, result.Type)
	assert.Equal(ABORT_NO_DEVICES_FOUND, result.Reason)
}

func TestUserStepProbeErrors(t *testing.T) {

	assert := assert.New(t)

	flow := newFlow(nil, &fakeProbe{err: weatherflow.ErrAddressInUse}, nil)
	result, err := flow.StepUser(context.Background(), host("10.0.0.2"))
	assert.NoError(err)
	assert.Equal(domain.RESULT_TYPE_FORM, result.Type)
	assert.Equal(map[string]string{"base": ERROR_ADDRESS_IN_USE}, result.Errors)
	assert.Equal("10.0.0.2", result.Data.Host)

	listenerErr := &weatherflow.ListenerError{Address: "10.0.0.3:50222", Err: errors.New("cannot assign requested address")}
	flow = newFlow(nil, &fakeProbe{err: listenerErr}, nil)
	result, err = flow.StepUser(context.Background(), host("10.0.0.3"))
	assert.NoError(err)
	assert.Equal(map[string]string{"base": ERROR_CANNOT_CONNECT}, result.Errors)

	flow = newFlow(nil, &fakeProbe{err: context.Canceled}, nil)
	_, err = flow.StepUser(context.Background(), host("10.0.0.4"))
	assert.ErrorIs(err, context.Canceled)
}

func TestUserStepInProgressFlowsSkipProbe(t *testing.T) {

	assert := assert.New(t)
	tracker := NewTracker()
	aborted := false
	tracker.Register("flow-0", func() { aborted = true })
	probe := &fakeProbe{found: false}
	flow := newFlow(nil, probe, tracker)

	result, err := flow.StepUser(context.Background(), host("0.0.0.0"))
	assert.NoError(err)
	assert.Equal(domain.RESULT_TYPE_CREATE_ENTRY, result.Type)
	assert.Empty(probe.calls)
	assert.True(aborted)
	assert.Equal(1, tracker.Len())
}

func TestUserStepNoInputWithFlowsInProgressCreatesEntry(t *testing.T) {

	assert := assert.New(t)
	tracker := NewTracker()
	aborted := false
	tracker.Register("flow-0", func() { aborted = true })
	probe := &fakeProbe{found: false}
	flow := newFlow(nil, probe, tracker)

	result, err := flow.StepUser(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(domain.RESULT_TYPE_CREATE_ENTRY, result.Type)
	assert.Equal("WeatherFlow", result.Title)
	assert.Equal("0.0.0.0", result.Data.Host)
	assert.Empty(probe.calls)
	assert.True(aborted)
}

func TestUserStepCustomDefaultHost(t *testing.T) {

	assert := assert.New(t)
	probe := &fakeProbe{found: true}
	flow := newFlow(nil, probe, nil)
	flow.DefaultHost = "192.168.1.2"

	result, err := flow.StepUser(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(domain.RESULT_TYPE_FORM, result.Type)
	assert.Equal("192.168.1.2", result.Data.Host)
	assert.Equal([]string{"192.168.1.2"}, probe.calls)

	result, err = flow.StepUser(context.Background(), host("192.168.1.2"))
	assert.NoError(err)
	assert.Equal(domain.RESULT_TYPE_CREATE_ENTRY, result.Type)
	assert.Equal("WeatherFlow", result.Title)

	flow = newFlow(staticHosts{"192.168.1.2"}, probe, nil)
	flow.DefaultHost = "192.168.1.2"
	result, err = flow.StepUser(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(domain.RESULT_TYPE_FORM, result.Type)
	assert.Nil(result.Data)

	result, err = flow.StepImport(context.Background(), &domain.ImportConfig{})
	assert.NoError(err)
	assert.Equal(ABORT_SINGLE_INSTANCE_ALLOWED, result.Reason)
}

func TestImportStep(t *testing.T) {

	assert := assert.New(t)
	tracker := NewTracker()
	aborted := false
	tracker.Register("flow-0", func() { aborted = true })
	flow := newFlow(staticHosts{"0.0.0.0"}, &fakeProbe{}, tracker)

	result, err := flow.StepImport(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(ABORT_SINGLE_INSTANCE_ALLOWED, result.Reason)

	result, err = flow.StepImport(context.Background(), &domain.ImportConfig{})
	assert.NoError(err)
	assert.Equal(ABORT_SINGLE_INSTANCE_ALLOWED, result.Reason)
	assert.False(aborted)

	result, err = flow.StepImport(context.Background(), &domain.ImportConfig{
		Host:                "192.168.1.5",
		Name:                "Garden",
		MonitoredConditions: []string{"air_temperature"},
		WindUnit:            "kmh",
	})
	assert.NoError(err)
	assert.Equal(domain.RESULT_TYPE_CREATE_ENTRY, result.Type)
	assert.Equal("Garden (192.168.1.5)", result.Title)
	assert.Equal(domain.SOURCE_IMPORT, result.Source)
	assert.Equal([]string{"air_temperature"}, result.Data.MonitoredConditions)
	assert.True(aborted)
}

func TestImportStepDefaultTitle(t *testing.T) {

	assert := assert.New(t)
	flow := newFlow(nil, &fakeProbe{}, nil)

	result, err := flow.StepImport(context.Background(), &domain.ImportConfig{Host: "0.0.0.0"})
	assert.NoError(err)
	assert.Equal("WeatherFlow", result.Title)
}

func TestParseLegacyConfig(t *testing.T) {

	assert := assert.New(t)
	configs, err := ParseLegacyConfig(strings.NewReader(`
sensor:
  - platform: template
    sensors: {}
  - platform: smartweatherudp
    host: 192.168.1.5
    name: Garden
    wind_unit: kmh
    monitored_conditions:
      - air_temperature
      - wind_speed
`))
	assert.NoError(err)
	assert.Len(configs, 1)
	assert.Equal("192.168.1.5", configs[0].Host)
	assert.Equal("Garden", configs[0].Name)
	assert.Equal("kmh", configs[0].WindUnit)
	assert.Equal([]string{"air_temperature", "wind_speed"}, configs[0].MonitoredConditions)

	configs, err = ParseLegacyConfig(strings.NewReader(""))
	assert.NoError(err)
	assert.Empty(configs)

	_, err = ParseLegacyConfig(strings.NewReader("sensor: [unclosed"))
	assert.Error(err)
}
