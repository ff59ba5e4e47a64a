package setup

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/berfenger/weatherflow2mqtt/pkg/weatherflow"
)

const (
	STEP_USER = "user"

	ABORT_SINGLE_INSTANCE_ALLOWED = "single_instance_allowed"
	ABORT_NO_DEVICES_FOUND        = "no_devices_found"

	ERROR_ADDRESS_IN_USE = "address_in_use"
	ERROR_CANNOT_CONNECT = "cannot_connect"

	DEFAULT_TITLE = "WeatherFlow"
)

type HostLister interface {
	Hosts(ctx context.Context) ([]string, error)
}

// Flow runs the steps of one setup flow. Id must be registered in Tracker
// while the flow is in progress. An empty DefaultHost means
// weatherflow.DEFAULT_HOST.
type Flow struct {
	Id          string
	Hosts       HostLister
	Probe       Prober
	Tracker     *Tracker
	DefaultHost string
}

// StepUser handles the interactive step. A nil host means no input.
func (f *Flow) StepUser(ctx context.Context, host *string) (domain.FlowResult, error) {
	configured, err := f.Hosts.Hosts(ctx)
	if err != nil {
		return domain.FlowResult{}, fmt.Errorf("could not list configured hosts: %w", err)
	}

	target := f.defaultHost()
	if host != nil {
		target = *host
	} else if slices.Contains(configured, target) {
		return f.form(nil, nil), nil
	}

	if slices.Contains(configured, target) {
		return f.abort(ABORT_SINGLE_INSTANCE_ALLOWED), nil
	}

	errs := map[string]string{}
	hasDevices := f.Tracker != nil && f.Tracker.Others(f.Id) > 0
	if !hasDevices {
		hasDevices, err = f.Probe(ctx, target)
		var listenerErr *weatherflow.ListenerError
		switch {
		case err == nil:
		case errors.Is(err, weatherflow.ErrAddressInUse):
			errs["base"] = ERROR_ADDRESS_IN_USE
		case errors.As(err, &listenerErr):
			errs["base"] = ERROR_CANNOT_CONNECT
		default:
			return domain.FlowResult{}, err
		}
		if len(errs) > 0 || host == nil {
			return f.form(&domain.EntryData{Host: target}, errs), nil
		}
	}

	if !hasDevices {
		return f.abort(ABORT_NO_DEVICES_FOUND), nil
	}

	f.abortOthers()
	return f.create(f.title(DEFAULT_TITLE, target), domain.SOURCE_USER, domain.EntryData{Host: target}), nil
}

// StepImport migrates one legacy platform block. A nil config aborts.
func (f *Flow) StepImport(ctx context.Context, config *domain.ImportConfig) (domain.FlowResult, error) {
	if config == nil {
		return f.abort(ABORT_SINGLE_INSTANCE_ALLOWED), nil
	}
	configured, err := f.Hosts.Hosts(ctx)
	if err != nil {
		return domain.FlowResult{}, fmt.Errorf("could not list configured hosts: %w", err)
	}

	host := config.Host
	if host == "" {
		host = f.defaultHost()
	}
	if slices.Contains(configured, host) {
		return f.abort(ABORT_SINGLE_INSTANCE_ALLOWED), nil
	}

	f.abortOthers()
	name := config.Name
	if name == "" {
		name = DEFAULT_TITLE
	}
	return f.create(f.title(name, host), domain.SOURCE_IMPORT, domain.EntryData{
		Host:                host,
		Name:                config.Name,
		MonitoredConditions: config.MonitoredConditions,
		WindUnit:            config.WindUnit,
	}), nil
}

func (f *Flow) defaultHost() string {
	if f.DefaultHost == "" {
		return weatherflow.DEFAULT_HOST
	}
	return f.DefaultHost
}

func (f *Flow) title(name, host string) string {
	if host == f.defaultHost() {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, host)
}

func (f *Flow) abortOthers() {
	if f.Tracker != nil {
		f.Tracker.AbortOthers(f.Id)
	}
}

func (f *Flow) form(data *domain.EntryData, errs map[string]string) domain.FlowResult {
	if len(errs) == 0 {
		errs = nil
	}
	return domain.FlowResult{
		FlowId: f.Id,
		Type:   domain.RESULT_TYPE_FORM,
		StepId: STEP_USER,
		Errors: errs,
		Data:   data,
	}
}

func (f *Flow) abort(reason string) domain.FlowResult {
	return domain.FlowResult{
		FlowId: f.Id,
		Type:   domain.RESULT_TYPE_ABORT,
		Reason: reason,
	}
}

func (f *Flow) create(title, source string, data domain.EntryData) domain.FlowResult {
	return domain.FlowResult{
		FlowId: f.Id,
		Type:   domain.RESULT_TYPE_CREATE_ENTRY,
		Title:  title,
		Source: source,
		Data:   &data,
	}
}
