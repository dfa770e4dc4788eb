package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trader-sim/internal/model"
)

// State is the persisted form of the ledger. Persistence is whole-state
// replace: one logical operation writes the full state back, so a crash
// leaves either the pre-trade or post-trade state on disk.
// Cash is a pointer so a state file written without the field loads as
// "absent" rather than $0; absent fields default to the initial state.
type State struct {
	Cash         *float64                 `json:"cash"`
	Holdings     map[string]model.Holding `json:"holdings"`
	Transactions []model.Transaction      `json:"transactions"`
	StartDate    time.Time                `json:"start_date"`
	Day          int                      `json:"day"`
}

// Store loads and saves ledger state. Load returns (nil, nil) when no state
// has been persisted yet.
type Store interface {
	Load() (*State, error)
	Save(*State) error
}

// FileStore persists ledger state as a JSON file.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the state file. A missing file is not an error.
func (s *FileStore) Load() (*State, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return &state, nil
}

// Save writes the state atomically: marshal, write to a temp file in the
// same directory, then rename over the target.
func (s *FileStore) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
