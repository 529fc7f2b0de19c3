// Package app wires configuration, storage, transport and the sync engine
// into one runnable client process.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"codexmonitor/internal/sweep"
	"codexmonitor/pkg/banner"
	"codexmonitor/pkg/cache"
	"codexmonitor/pkg/config"
	"codexmonitor/pkg/logger"
	"codexmonitor/pkg/state"
	"codexmonitor/pkg/store"
	"codexmonitor/pkg/syncer"
	"codexmonitor/pkg/telemetry"
	"codexmonitor/pkg/transport"
	"codexmonitor/pkg/transport/natsbridge"
)

// App encapsulates the client components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	cache  *cache.Cache
	tel    *telemetry.Log
	engine *syncer.Engine
	bridge *natsbridge.Bridge
	srv    *http.Server
}

// New initializes everything that does not need a running context: the
// local store, the cache, telemetry, the transport and the engine. Call Run
// to start the loops and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	cfg := eff.Config

	if err := state.EnsureStateDirs(eff.DBPath); err != nil {
		return nil, fmt.Errorf("prepare state dirs under %s: %w", eff.DBPath, err)
	}
	if err := store.Open(state.StorePath(eff.DBPath)); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	c := cache.New(store.NewBlob(store.CacheBlobKey), cache.Options{
		MaxThreads: cfg.Cache.MaxThreads,
		MaxItems:   cfg.Cache.MaxItems,
		MaxTextLen: cfg.Cache.MaxTextSize.Int(),
		MaxAge:     cfg.Cache.MaxAge.Duration(),
	})

	var tel *telemetry.Log
	if cfg.Telemetry.Enabled {
		tel = telemetry.NewLog(store.NewBlob(store.TelemetryBlobKey), cfg.Telemetry.Capacity)
	}

	var tr transport.Transport
	var bridge *natsbridge.Bridge
	if cfg.Bridge.URL != "" {
		b, err := natsbridge.Connect(cfg.Bridge.URL, natsbridge.Options{
			RequestTimeout: cfg.Bridge.RequestTimeout.Duration(),
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connect bridge %s: %w", cfg.Bridge.URL, err)
		}
		bridge = b
		tr = b
	} else {
		logger.Warn("bridge_url_missing", "msg", "running against in-memory transport")
		tr = transport.NewMemory()
	}

	clientID := cfg.Bridge.ClientID
	if clientID == "" {
		clientID = "codexmonitor-" + uuid.NewString()
	}

	eng := syncer.New(tr, c, tel, syncer.Options{
		ClientID:                 clientID,
		PollInterval:             cfg.Sync.PollInterval.Duration(),
		ResultPollInterval:       cfg.Sync.ResultPollInterval.Duration(),
		ReplyTimeout:             cfg.Sync.ReplyTimeout.Duration(),
		DuplicateSendWindow:      cfg.Sync.DuplicateSendWindow.Duration(),
		LivenessWindow:           cfg.Bridge.LivenessWindow.Duration(),
		WorkspaceFetchesPerTick:  cfg.Sync.WorkspaceFetchesPerTick,
		BackgroundThreadsPerTick: cfg.Sync.BackgroundThreadsPerTick,
		FetchRPS:                 cfg.Sync.FetchRPS,
		FetchBurst:               cfg.Sync.FetchBurst,
	})

	return &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		cache:     c,
		tel:       tel,
		engine:    eng,
		bridge:    bridge,
	}, nil
}

// Engine exposes the sync engine to embedders (UIs drive it directly).
func (a *App) Engine() *syncer.Engine { return a.engine }

// Run starts the sweep scheduler, the engine loops and the debug HTTP
// listener, and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	cancelSweep, err := sweep.Start(ctx, a.eff.Config.Sweep, a.cache)
	if err != nil {
		return err
	}
	defer cancelSweep()

	go a.engine.Run(ctx)

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

func (a *App) shutdown() {
	if a.srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		_ = a.srv.Shutdown(sctx)
		cancel()
	}
	if a.bridge != nil {
		a.bridge.Close()
	}
	store.Close()
	logger.Info("app_stopped")
}

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "none" && a.commit != "" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "unknown" && a.buildDate != "" {
		verStr += " @ " + a.buildDate
	}
	banner.Print(a.eff, verStr)
}
