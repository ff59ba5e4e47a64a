package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/weatherflow2mqtt/internal/config"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

type Server struct {
	port         uint
	httpLog      bool
	setupTimeout time.Duration
	rootContext  *actor.RootContext
	masterActor  *actor.PID
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID) *http.Server {
	// a setup request may block for a whole discovery probe
	setupTimeout := time.Duration(cfg.Setup.ProbeTimeoutSeconds)*time.Second + 5*time.Second

	NewServer := &Server{
		port:         cfg.Port,
		rootContext:  rootContext,
		masterActor:  masterActor,
		httpLog:      cfg.HttpLog,
		setupTimeout: setupTimeout,
	}

	// Declare Server config
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", NewServer.port),
		Handler:           NewServer.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      setupTimeout + 5*time.Second,
	}

	return server
}
