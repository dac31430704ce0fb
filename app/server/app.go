package server

import (
	"context"
	"os"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/osmcz/mapcampaign/app/server/types"
	"github.com/osmcz/mapcampaign/pkg/chat"
	"github.com/osmcz/mapcampaign/pkg/hub"
	"github.com/osmcz/mapcampaign/pkg/ledger"
	"github.com/osmcz/mapcampaign/pkg/logging"
	"github.com/osmcz/mapcampaign/pkg/osm"
	"github.com/osmcz/mapcampaign/pkg/period"
	"github.com/osmcz/mapcampaign/pkg/stats"
	"github.com/osmcz/mapcampaign/pkg/store"
	"go.uber.org/zap"
)

// Initialize wires every component, reloads persisted state (or the seed data
// when starting clean) and arms the scheduler.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	cfg := types.ConfigFromEnv()

	app := &types.App{
		Config:  cfg,
		Ledger:  ledger.New(cfg.VoteQuota, logger),
		Chat:    chat.NewLog(cfg.ChatHistory),
		Machine: period.NewMachine(cfg.PeriodKind, cfg.AnnounceAt, logger),
		Hub:     hub.New(logger),
		Store:   store.New(cfg.DataFile, cfg.ProjectFile, logger),
		Logger:  logger,
	}

	app.Source = osm.NewClient(osm.Opts{
		Endpoints: cfg.Endpoints,
		Marker:    cfg.Marker,
		BBox:      cfg.BBox,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
	}, logger)

	app.Stats = stats.NewCache(cfg.StatsTTL, app.FetchWindow, func(snap *stats.Snapshot) {
		app.Hub.Broadcast(hub.Event{Type: hub.EventStatsUpdate, Payload: snap})
	}, logger)

	loadState(app)

	if err := SetupScheduler(ctx, app); err != nil {
		logger.Fatal("Unable to set up scheduler", zap.Error(err))
	}

	return app
}

// loadState restores the data and project snapshots. A missing data file falls
// back to the seed ideas; a corrupt one starts empty rather than crashing.
func loadState(app *types.App) {
	st, err := app.Store.Load()
	if err != nil {
		app.Logger.Warn("Unable to load data snapshot, starting empty", zap.Error(err))
	}

	switch {
	case st != nil:
		app.Ledger.Restore(st.Ideas, st.UserVotes)
		app.Chat.Restore(st.ChatMessages)
		app.Logger.Info("Data loaded",
			zap.Int("chat_messages", len(st.ChatMessages)),
			zap.Int("ideas", len(st.Ideas)))
	case app.Config.SeedFile != "":
		seedLedger(app)
	}

	project, err := app.Store.LoadProject()
	if err != nil {
		app.Logger.Warn("Unable to load project snapshot", zap.Error(err))
		return
	}
	if project != nil {
		app.Machine.Restore(project)
		app.Logger.Info("Current project loaded", zap.String("title", project.Title))
	}
}

func seedLedger(app *types.App) {
	raw, err := os.ReadFile(app.Config.SeedFile)
	if err != nil {
		app.Logger.Warn("Unable to read seed file", zap.Error(err))
		return
	}

	var ideas []ledger.Idea
	if err := json.Unmarshal(raw, &ideas); err != nil {
		app.Logger.Warn("Unable to decode seed file", zap.Error(err))
		return
	}

	app.Ledger.Restore(ideas, nil)
	app.Logger.Info("Seed ideas loaded", zap.Int("ideas", len(ideas)))
}
