package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/osmcz/mapcampaign/pkg/chat"
	"github.com/osmcz/mapcampaign/pkg/ledger"
	"github.com/osmcz/mapcampaign/pkg/period"
	"go.uber.org/zap"
)

// State is the durable snapshot of all client-mutated data. The wire keys match
// the historical data file so existing deployments reload cleanly.
type State struct {
	ChatMessages []chat.Message     `json:"chat_messages"`
	Ideas        []ledger.Idea      `json:"project_ideas"`
	UserVotes    map[string][]int64 `json:"user_votes"`
	LastUpdated  time.Time          `json:"last_updated"`
}

type projectFile struct {
	CurrentProject *period.Project `json:"current_project"`
	LastUpdated    time.Time       `json:"last_updated"`
}

// Store checkpoints application state to two JSON files: the data file (chat,
// ideas, votes) and the project file (decided current project). Writes go
// through a temp file and rename, so a crash never leaves a truncated snapshot.
type Store struct {
	dataPath    string
	projectPath string
	logger      *zap.Logger
}

// New creates a Store writing to the given paths.
func New(dataPath, projectPath string, logger *zap.Logger) *Store {
	return &Store{
		dataPath:    dataPath,
		projectPath: projectPath,
		logger:      logger,
	}
}

// Save checkpoints the data file.
func (s *Store) Save(st *State) error {
	st.LastUpdated = time.Now()
	if err := writeAtomic(s.dataPath, st); err != nil {
		return fmt.Errorf("save data snapshot: %w", err)
	}
	s.logger.Debug("Data snapshot saved",
		zap.Int("chat_messages", len(st.ChatMessages)),
		zap.Int("ideas", len(st.Ideas)))
	return nil
}

// Load reads the data file. A missing file yields (nil, nil): first run.
func (s *Store) Load() (*State, error) {
	raw, err := os.ReadFile(s.dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load data snapshot: %w", err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode data snapshot: %w", err)
	}
	return &st, nil
}

// SaveProject checkpoints the decided project.
func (s *Store) SaveProject(p *period.Project) error {
	doc := projectFile{CurrentProject: p, LastUpdated: time.Now()}
	if err := writeAtomic(s.projectPath, &doc); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// LoadProject reads the decided project; nil when the file does not exist or
// no project has been decided yet.
func (s *Store) LoadProject() (*period.Project, error) {
	raw, err := os.ReadFile(s.projectPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}

	var doc projectFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return doc.CurrentProject, nil
}

func writeAtomic(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
