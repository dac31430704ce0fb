package types

import (
	"context"
	"fmt"
	"time"

	"github.com/osmcz/mapcampaign/pkg/chat"
	"github.com/osmcz/mapcampaign/pkg/hub"
	"github.com/osmcz/mapcampaign/pkg/osm"
	"github.com/osmcz/mapcampaign/pkg/period"
	"github.com/osmcz/mapcampaign/pkg/store"
	"go.uber.org/zap"
)

// FetchWindow pulls the campaign changesets for the trailing stats window.
func (a *App) FetchWindow(ctx context.Context) ([]osm.Changeset, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -a.Config.WindowDays)
	return a.Source.FetchChangesets(ctx, start, end)
}

// PersistState checkpoints chat history, ideas and vote records. Failures are
// returned for logging only; the next tick retries with fresh state.
func (a *App) PersistState() error {
	ideas, votes := a.Ledger.Export()
	return a.Store.Save(&store.State{
		ChatMessages: a.Chat.Messages(),
		Ideas:        ideas,
		UserVotes:    votes,
	})
}

// CheckPeriod runs the period-boundary transition when due: pick the winner,
// announce the project, emit the system chat message and persist. Safe to call
// on every tick; after an announcement the machine is no longer due for the
// current window, so re-running is a no-op.
func (a *App) CheckPeriod(now time.Time) {
	a.periodMu.Lock()
	defer a.periodMu.Unlock()

	if !a.Machine.Due(now) {
		return
	}

	winner, ok := a.Ledger.SelectWinner(a.Machine.ExcludeWinning())
	if !ok {
		// No eligible idea yet; stay due and retry next tick.
		return
	}

	start, end := a.Machine.Window()
	project := period.Project{
		ID:          winner.ID,
		Title:       winner.Title,
		Description: winner.Description,
		Author:      winner.Author,
		Votes:       winner.Votes,
		StartDate:   start.Format(period.DateLayout),
		EndDate:     end.Format(period.DateLayout),
	}
	a.Machine.Announce(project)

	if a.Config.ResetVotesOnRollover && a.Machine.ExcludeWinning() {
		a.Ledger.ResetVotes()
	}

	if err := a.Store.SaveProject(&project); err != nil {
		a.Logger.Error("Unable to persist announced project", zap.Error(err))
	}

	text := fmt.Sprintf("🎉 Vyhlášen vítězný projekt: %q! Mapujeme od %s do %s.",
		winner.Title, project.StartDate, project.EndDate)
	if msg, appended := a.Chat.Append(chat.SystemUser, text); appended {
		a.Hub.Broadcast(hub.Event{Type: hub.EventChatMessage, Payload: msg})
	}
}
