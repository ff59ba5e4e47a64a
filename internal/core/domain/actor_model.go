package domain

const (
	ACTOR_ID_MASTER  = "master"
	ACTOR_ID_MQTT    = "mqtt"
	ACTOR_ID_STATION = "station"
	ACTOR_ID_SETUP   = "setup"
)

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// ClearDiscoveryRequest removes the retained discovery configs of the given
// sensors so that Home Assistant drops the entities.
type ClearDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// setup

type SetupRequest struct {
	ActorRequestMixIn
	Host *string
}

type ImportRequest struct {
	ActorRequestMixIn
	Config ImportConfig
}

type SetupResponse struct {
	ActorResponseMixIn
	Result FlowResult
}

// entries

type ListEntriesRequest struct {
	ActorRequestMixIn
}

type ListEntriesResponse struct {
	ActorResponseMixIn
	Entries []ConfigEntry
}

type RemoveEntryRequest struct {
	ActorRequestMixIn
	Id string
}

type RemoveEntryResponse struct {
	ActorResponseMixIn
	Removed bool
}

// station

type AvailabilityTick struct {
	StaleAfterSeconds uint
}

type ListStationDevicesRequest struct {
	ActorRequestMixIn
	EntryId string
}

type ListStationDevicesResponse struct {
	ActorResponseMixIn
	EntryId string
	Sensors []GenericSensor
}
