package autotrader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxSessions caps the on-disk session history.
const maxSessions = 1000

// SkippedTrade records a suggestion that failed validation or execution.
type SkippedTrade struct {
	Trade  SuggestedTrade `json:"trade"`
	Reason string         `json:"reason"`
}

// Session is one cycle's audit record.
type Session struct {
	Timestamp      time.Time        `json:"timestamp"`
	PortfolioValue float64          `json:"portfolio_value"`
	Cash           float64          `json:"cash"`
	Positions      int              `json:"positions"`
	Analysis       string           `json:"analysis,omitempty"`
	ExecutedTrades []SuggestedTrade `json:"executed_trades"`
	SkippedTrades  []SkippedTrade   `json:"skipped_trades"`
	HoldReasoning  string           `json:"hold_reasoning,omitempty"`
}

// SessionLog appends cycle records to a JSON file, keeping the most recent
// maxSessions entries.
type SessionLog struct {
	mu   sync.Mutex
	path string
}

// NewSessionLog creates a session log at path. A nil receiver is usable and
// drops records, so callers can leave logging unconfigured.
func NewSessionLog(path string) *SessionLog {
	return &SessionLog{path: path}
}

type sessionFile struct {
	Sessions []Session `json:"sessions"`
}

// Append writes the session, trimming history to the cap.
func (sl *SessionLog) Append(s Session) error {
	if sl == nil {
		return nil
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	var file sessionFile
	if data, err := os.ReadFile(sl.path); err == nil {
		// A corrupt log starts over rather than blocking trading.
		_ = json.Unmarshal(data, &file)
	}

	file.Sessions = append(file.Sessions, s)
	if len(file.Sessions) > maxSessions {
		file.Sessions = file.Sessions[len(file.Sessions)-maxSessions:]
	}

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(sl.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(sl.path), ".sessions-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), sl.path)
}

// Recent returns up to n most recent sessions, newest last.
func (sl *SessionLog) Recent(n int) ([]Session, error) {
	if sl == nil {
		return nil, nil
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	data, err := os.ReadFile(sl.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if n > 0 && len(file.Sessions) > n {
		return file.Sessions[len(file.Sessions)-n:], nil
	}
	return file.Sessions, nil
}
