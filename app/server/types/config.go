package types

import (
	"strings"
	"time"

	"github.com/osmcz/mapcampaign/pkg/chat"
	"github.com/osmcz/mapcampaign/pkg/ledger"
	"github.com/osmcz/mapcampaign/pkg/period"
	"github.com/osmcz/mapcampaign/pkg/utils"
)

// Config collects every knob of the campaign service. The monthly and
// quarterly deployments run the same binary and differ only in these values.
type Config struct {
	Addr string

	// Changeset source
	Endpoints    []string
	Marker       string
	BBox         string
	UserAgent    string
	WindowDays   int
	FetchTimeout time.Duration

	// Cadences
	StatsTTL        time.Duration
	RefreshInterval time.Duration
	PersistInterval time.Duration
	PeriodInterval  time.Duration

	// Voting period
	PeriodKind           period.Kind
	AnnounceAt           time.Time
	VoteQuota            int
	ResetVotesOnRollover bool

	// Persistence
	DataFile    string
	ProjectFile string
	SeedFile    string

	// Realtime
	ChatHistory int
	ChatReplay  int
}

// ConfigFromEnv builds the Config from environment variables with defaults
// matching the original Czech "project of the month" deployment.
func ConfigFromEnv() Config {
	kind := period.Kind(utils.Env("PERIOD_KIND", string(period.Monthly)))
	if kind != period.Quarterly {
		kind = period.Monthly
	}

	announceAt := parseAnnounceAt(utils.Env("ANNOUNCE_AT", ""), kind)

	return Config{
		Addr: utils.Env("ADDR", ":4040"),

		Endpoints:    strings.Split(utils.Env("OSM_ENDPOINTS", "https://api.openstreetmap.org"), ","),
		Marker:       utils.Env("CAMPAIGN_MARKER", "#projektmesice"),
		BBox:         utils.Env("OSM_BBOX", "12.09,48.55,18.87,51.06"),
		UserAgent:    utils.Env("OSM_USER_AGENT", "OSM-Projekt-Mesice/1.0 (Czech OSM Community; https://openstreetmap.cz)"),
		WindowDays:   utils.EnvInt("FETCH_WINDOW_DAYS", 30),
		FetchTimeout: utils.EnvDuration("FETCH_TIMEOUT", 60*time.Second),

		StatsTTL:        utils.EnvDuration("STATS_TTL", 5*time.Minute),
		RefreshInterval: utils.EnvDuration("STATS_REFRESH_INTERVAL", 5*time.Minute),
		PersistInterval: utils.EnvDuration("PERSIST_INTERVAL", 30*time.Second),
		PeriodInterval:  utils.EnvDuration("PERIOD_CHECK_INTERVAL", 30*time.Second),

		PeriodKind: kind,
		AnnounceAt: announceAt,
		VoteQuota:  utils.EnvInt("VOTE_QUOTA", ledger.DefaultVoteQuota),
		// Quarterly periods re-open voting, so quotas start over by default;
		// the monthly machine is terminal and never rolls over.
		ResetVotesOnRollover: utils.EnvBool("RESET_VOTES_ON_ROLLOVER", kind == period.Quarterly),

		DataFile:    utils.Env("DATA_FILE", "osm_project_data.json"),
		ProjectFile: utils.Env("PROJECT_FILE", "osm_project_config.json"),
		SeedFile:    utils.Env("SEED_FILE", ""),

		ChatHistory: utils.EnvInt("CHAT_HISTORY", chat.MaxMessages),
		ChatReplay:  utils.EnvInt("CHAT_REPLAY", 50),
	}
}

func parseAnnounceAt(raw string, kind period.Kind) time.Time {
	if raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	if kind == period.Quarterly {
		return period.NextQuarterStart(time.Now())
	}
	return time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC)
}
