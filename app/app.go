// Package app wires a configured engine.Engine to process lifecycle:
// starting it and stopping it cleanly on SIGINT/SIGTERM.
package app

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/searchktools/tinyhttpd/config"
	"github.com/searchktools/tinyhttpd/internal/engine"
	"github.com/searchktools/tinyhttpd/internal/logger"
)

// App pairs a loaded Config with the Engine built from it.
type App struct {
	cfg    *config.Config
	log    *logger.Logger
	engine *engine.Engine
}

// New wraps an already-constructed Engine (the caller builds it, since
// doing so requires the users cache and dispatcher wiring only main
// knows about).
func New(cfg *config.Config, log *logger.Logger, eng *engine.Engine) *App {
	return &App{cfg: cfg, log: log, engine: eng}
}

// Run starts the SIGINT/SIGTERM watcher and blocks in the engine's
// event loop until it exits, via either that signal or the engine's own
// SIGTERM handling on the signal-bridge fd.
func (a *App) Run() error {
	go a.awaitSignal()
	return a.engine.Run()
}

// awaitSignal asks the engine to stop at the next loop iteration rather
// than exiting the process immediately, so in-flight connections get a
// chance to finish their current read/write cycle.
func (a *App) awaitSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	a.log.Infof("received %v, stopping", sig)
	a.engine.Stop()
}
