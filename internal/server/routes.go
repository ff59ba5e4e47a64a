package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/berfenger/weatherflow2mqtt/internal/core/actor"
	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type setupBody struct {
	Host *string `json:"host"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/version", s.VersionHandler)

	api := e.Group("/api")
	api.POST("/setup", s.SetupHandler)
	api.GET("/entries", s.ListEntriesHandler)
	api.DELETE("/entries/:id", s.RemoveEntryHandler)
	api.GET("/entries/:id/devices", s.ListDevicesHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) VersionHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"version":  versioninfo.Short(),
		"revision": versioninfo.Revision,
	})
}

func (s *Server) SetupHandler(c echo.Context) error {
	var body setupBody
	if err := c.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.SetupRequest{Host: body.Host}, s.setupTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusGatewayTimeout, errorBody{Error: err.Error()})
	}
	response, ok := res.(domain.SetupResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: response.GetResponseError().Error()})
	}
	status := http.StatusOK
	if response.Result.Type == domain.RESULT_TYPE_CREATE_ENTRY {
		status = http.StatusCreated
	}
	return c.JSON(status, response.Result)
}

func (s *Server) ListEntriesHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ListEntriesRequest{}, 5*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusGatewayTimeout, errorBody{Error: err.Error()})
	}
	response, ok := res.(domain.ListEntriesResponse)
	if !ok || response.HasResponseError() {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "could not list entries"})
	}
	entries := response.Entries
	if entries == nil {
		entries = []domain.ConfigEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) RemoveEntryHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.RemoveEntryRequest{Id: c.Param("id")}, 5*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusGatewayTimeout, errorBody{Error: err.Error()})
	}
	response, ok := res.(domain.RemoveEntryResponse)
	if !ok || response.HasResponseError() {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "could not remove entry"})
	}
	if !response.Removed {
		return c.JSON(http.StatusNotFound, errorBody{Error: "entry not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) ListDevicesHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ListStationDevicesRequest{EntryId: c.Param("id")}, 5*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusGatewayTimeout, errorBody{Error: err.Error()})
	}
	response, ok := res.(domain.ListStationDevicesResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if errors.Is(response.GetResponseError(), actor.ErrStationNotFound) {
		return c.JSON(http.StatusNotFound, errorBody{Error: response.GetResponseError().Error()})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: response.GetResponseError().Error()})
	}
	sensors := response.Sensors
	if sensors == nil {
		sensors = []domain.GenericSensor{}
	}
	return c.JSON(http.StatusOK, sensors)
}
