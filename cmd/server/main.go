// Command server runs the HTTP server: load configuration, warm the
// users cache from MySQL, and drive the event loop until SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/searchktools/tinyhttpd/app"
	"github.com/searchktools/tinyhttpd/config"
	"github.com/searchktools/tinyhttpd/internal/db"
	"github.com/searchktools/tinyhttpd/internal/engine"
	"github.com/searchktools/tinyhttpd/internal/handler"
	"github.com/searchktools/tinyhttpd/internal/logger"
	"github.com/searchktools/tinyhttpd/internal/poller"
	"github.com/searchktools/tinyhttpd/internal/runtimetune"
	"github.com/searchktools/tinyhttpd/internal/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tinyhttpd:", err)
		os.Exit(1)
	}
}

func run() error {
	runtimetune.Apply(runtimetune.ForThroughput())

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Options{
		Path:       "log/tinyhttpd",
		Async:      cfg.LogWrite == 1,
		QueueSize:  8192,
		SplitLines: 8000000,
	})
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer log.Close()

	if cfg.CloseLog == 1 {
		log.Disable()
	}

	userStore := users.New()
	var pool *db.Pool
	if cfg.DSN != "" {
		pool, err = db.Open(db.Config{DSN: cfg.DSN, PoolSize: cfg.SQLNum})
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer pool.Close()

		rows, err := pool.LoadUsers(context.Background())
		if err != nil {
			log.Warnf("load users: %v", err)
		} else {
			userStore.Load(rows)
		}
	} else {
		log.Warnf("no -dsn given; running with an empty, non-persistent users cache")
	}

	dispatcher := &handler.Dispatcher{
		DocRoot: cfg.DocRoot,
		Users:   userStore,
	}
	if pool != nil {
		dispatcher.Persist = pool
	}

	eng, err := engine.New(engine.Config{
		Addr:          fmt.Sprintf(":%d", cfg.Port),
		ListenTrigger: trigger(cfg.ListenTrig),
		ConnTrigger:   trigger(cfg.ConnTrig),
		Actor:         actorModel(cfg.ActorModel),
		DocRoot:       cfg.DocRoot,
		OptLinger:     cfg.OptLinger == 1,
		Workers:       cfg.ThreadNum,
		Log:           log,
		Dispatcher:    dispatcher,
	})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	log.Infof("listening on port %d (docroot=%s, actor=%d, trig=%d/%d)",
		cfg.Port, cfg.DocRoot, cfg.ActorModel, cfg.ListenTrig, cfg.ConnTrig)

	return app.New(cfg, log, eng).Run()
}

func trigger(v int) poller.Trigger {
	if v == 1 {
		return poller.EdgeTriggered
	}
	return poller.LevelTriggered
}

func actorModel(v int) engine.ActorModel {
	if v == 1 {
		return engine.Reactor
	}
	return engine.Proactor
}
