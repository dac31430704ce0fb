package types

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/osmcz/mapcampaign/pkg/chat"
	"github.com/osmcz/mapcampaign/pkg/hub"
	"github.com/osmcz/mapcampaign/pkg/ledger"
	"github.com/osmcz/mapcampaign/pkg/osm"
	"github.com/osmcz/mapcampaign/pkg/period"
	"github.com/osmcz/mapcampaign/pkg/stats"
	"github.com/osmcz/mapcampaign/pkg/store"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// App owns all mutable campaign state. Handlers and scheduler ticks receive it
// explicitly; every component guards its own data, so the three periodic jobs
// and concurrent client requests coordinate only through those locks.
type App struct {
	Config Config

	Ledger  *ledger.Ledger
	Chat    *chat.Log
	Stats   *stats.Cache
	Machine *period.Machine
	Hub     *hub.Hub
	Store   *store.Store
	Source  *osm.Client

	// Cron triggers the three periodic jobs: stats refresh, persistence
	// snapshot and period-boundary check, each on its own interval.
	Cron *cron.Cron

	// Logger is used to log messages, errors, and events during the application's lifecycle and operations.
	Logger *zap.Logger

	// Server is the HTTP server that serves the API.
	Server *http.Server

	periodMu sync.Mutex
}

// Start starts the application and blocks until ctx is cancelled, then shuts
// everything down: cron first, one final snapshot, then the HTTP server.
func (a *App) Start(ctx context.Context) {
	a.Cron.Start()
	a.Logger.Info("Scheduler started",
		zap.Duration("stats_refresh", a.Config.RefreshInterval),
		zap.Duration("persist", a.Config.PersistInterval),
		zap.Duration("period_check", a.Config.PeriodInterval))

	// Warm the stats cache without delaying startup.
	go func() {
		rctx, cancel := context.WithTimeout(ctx, a.Config.FetchTimeout+30*time.Second)
		defer cancel()
		a.Stats.Get(rctx)
	}()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Fatal("Unable to serve", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	<-a.Cron.Stop().Done()

	if err := a.PersistState(); err != nil {
		a.Logger.Error("Final snapshot failed", zap.Error(err))
	}

	_ = a.Server.Shutdown(shutdownCtx)
	a.Logger.Info("Server stopped")
}
