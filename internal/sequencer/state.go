package sequencer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StateStore persists the sequencer's last assigned id to a JSON file so
// numbering survives process restarts. Writes replace the file atomically
// (temp file + rename); a torn write never leaves partial state behind.
type StateStore struct {
	path string
	last int
}

type stateFile struct {
	LastSequenceID int `json:"last_sequence_id"`
}

// OpenStateStore loads existing state from path, or starts fresh when the
// file does not exist.
func OpenStateStore(path string) (*StateStore, error) {
	s := &StateStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read sequence state %s: %w", path, err)
	}

	var f stateFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sequence state %s: %w", path, err)
	}
	s.last = f.LastSequenceID
	return s, nil
}

// LastSequenceID returns the persisted id, zero when none was stored.
func (s *StateStore) LastSequenceID() int {
	return s.last
}

// SetLastSequenceID persists a new id.
func (s *StateStore) SetLastSequenceID(id int) error {
	s.last = id

	data, err := json.MarshalIndent(stateFile{LastSequenceID: id}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sequence state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}
