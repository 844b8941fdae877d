package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/coderun/schema"
	"pkt.systems/pslog"
)

const recordFile = "session.json"

// SessionRecord identifies a remote process started by this client.
type SessionRecord struct {
	PID        schema.PID `json:"pid"`
	BackendURL string     `json:"backend_url"`
	StartedAt  time.Time  `json:"started_at"`
}

// Store persists the active session record to disk.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a persistent store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a persistent store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Path returns the record file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, recordFile)
}

// Load reads the session record. A missing file is not an error.
func (s *Store) Load() (SessionRecord, bool, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.debug("state load miss")
			return SessionRecord{}, false, nil
		}
		s.warn("state load failed", err)
		return SessionRecord{}, false, err
	}
	var record SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.warn("state load failed", err)
		return SessionRecord{}, false, err
	}
	if record.PID.IsZero() {
		s.debug("state load empty")
		return SessionRecord{}, false, nil
	}
	s.debug("state load ok", "pid", record.PID.String())
	return record, true, nil
}

// Save atomically replaces the session record.
func (s *Store) Save(record SessionRecord) error {
	path := s.Path()
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		s.warn("state save failed", err)
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "session-*.json")
	if err != nil {
		s.warn("state save failed", err)
		return err
	}
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		s.warn("state save failed", err)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return cleanup(err)
	}
	if s.log != nil {
		s.log.Trace("state save ok", "pid", record.PID.String())
	}
	return nil
}

// Clear removes the session record if present.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.warn("state clear failed", err)
		return err
	}
	if s.log != nil {
		s.log.Trace("state clear ok")
	}
	return nil
}

func (s *Store) debug(msg string, kv ...any) {
	if s.log != nil {
		s.log.Debug(msg, kv...)
	}
}

func (s *Store) warn(msg string, err error) {
	if s.log != nil {
		s.log.Warn(msg, "err", err)
	}
}
