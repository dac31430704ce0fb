package server

import (
	"context"
	"time"

	"github.com/osmcz/mapcampaign/app/server/types"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SetupScheduler arms the three periodic jobs on independent intervals. They
// only share component locks, so a slow changeset fetch never delays the
// persistence snapshot or the period-boundary check.
func SetupScheduler(ctx context.Context, app *types.App) error {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	if _, err := c.AddFunc(every(app.Config.RefreshInterval), func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, app.Config.FetchTimeout+30*time.Second)
		defer cancel()
		app.Stats.Refresh(rctx)
	}); err != nil {
		return err
	}

	if _, err := c.AddFunc(every(app.Config.PersistInterval), func() {
		if err := app.PersistState(); err != nil {
			app.Logger.Error("Persistence snapshot failed, will retry next tick", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := c.AddFunc(every(app.Config.PeriodInterval), func() {
		app.CheckPeriod(time.Now())
	}); err != nil {
		return err
	}

	app.Cron = c
	return nil
}

func every(d time.Duration) string {
	return "@every " + d.String()
}
