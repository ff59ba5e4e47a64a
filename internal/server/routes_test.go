package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/berfenger/weatherflow2mqtt/internal/core/actor"
	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubMaster(t *testing.T) *Server {
	as := pactor.NewActorSystem()
	t.Cleanup(as.Shutdown)
	pid := as.Root.Spawn(pactor.PropsFromFunc(func(ctx pactor.Context) {
		switch msg := ctx.Message().(type) {
		case domain.ActorHealthRequest:
			ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: true})
		case domain.SetupRequest:
			if msg.Host == nil {
				ctx.Respond(domain.SetupResponse{Result: domain.FlowResult{Type: domain.RESULT_TYPE_FORM, StepId: "user"}})
				return
			}
			ctx.Respond(domain.SetupResponse{Result: domain.FlowResult{
				Type:  domain.RESULT_TYPE_CREATE_ENTRY,
				Title: "WeatherFlow (" + *msg.Host + ")",
			}})
		case domain.ListEntriesRequest:
			ctx.Respond(domain.ListEntriesResponse{Entries: []domain.ConfigEntry{{Id: "e1", Host: "0.0.0.0", Title: "WeatherFlow"}}})
		case domain.RemoveEntryRequest:
			ctx.Respond(domain.RemoveEntryResponse{Removed: msg.Id == "e1"})
		case domain.ListStationDevicesRequest:
			if msg.EntryId != "e1" {
				ctx.Respond(domain.ListStationDevicesResponse{ActorResponseMixIn: domain.ResponseError(actor.ErrStationNotFound)})
				return
			}
			ctx.Respond(domain.ListStationDevicesResponse{EntryId: msg.EntryId})
		}
	}))
	return &Server{rootContext: as.Root, masterActor: pid, setupTimeout: 2 * time.Second}
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	s := stubMaster(t)
	rec := serve(s, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "health_check: OK", rec.Body.String())
}

func TestSetupRoutes(t *testing.T) {
	s := stubMaster(t)

	rec := serve(s, http.MethodPost, "/api/setup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var form domain.FlowResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &form))
	assert.Equal(t, domain.RESULT_TYPE_FORM, form.Type)

	rec = serve(s, http.MethodPost, "/api/setup", `{"host":"192.168.1.20"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.FlowResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "WeatherFlow (192.168.1.20)", created.Title)
}

func TestEntryRoutes(t *testing.T) {
	s := stubMaster(t)

	rec := serve(s, http.MethodGet, "/api/entries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []domain.ConfigEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].Id)

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/api/entries/e1/devices", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/api/entries/nope/devices", "").Code)

	assert.Equal(t, http.StatusNoContent, serve(s, http.MethodDelete, "/api/entries/e1", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodDelete, "/api/entries/nope", "").Code)
}
