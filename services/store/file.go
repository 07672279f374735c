package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"sjsage522/retroconsolas/internal/market"
	"sjsage522/retroconsolas/logger"
	"sjsage522/retroconsolas/pkg/errors"
)

const (
	// LatestFile holds the snapshot of the most recent run
	LatestFile = "latest.json"
	// HistoryFile holds one snapshot per date
	HistoryFile = "history.json"
)

// FileStore keeps snapshots as JSON documents in a directory
type FileStore struct {
	dir string
	log *logger.Logger
}

// NewFileStore creates a store writing into dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, log: logger.ForStore()}
}

// Save writes latest.json, then upserts snap into history.json. An
// unreadable history file is an error and is left untouched; latest.json is
// written regardless.
func (s *FileStore) Save(ctx context.Context, snap market.DailySnapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.NewPersistence("file", "failed to create data directory", err)
	}

	if err := writeJSON(filepath.Join(s.dir, LatestFile), snap); err != nil {
		return err
	}
	s.log.Info().Str("file", LatestFile).Msg("Saved")

	history, err := s.History(ctx)
	if err != nil {
		return err
	}

	history = market.UpsertHistory(history, snap)
	if err := writeJSON(filepath.Join(s.dir, HistoryFile), history); err != nil {
		return err
	}
	s.log.Info().Str("file", HistoryFile).Int("days", len(history)).Msg("Saved")

	return nil
}

// History reads history.json; a missing file is an empty history
func (s *FileStore) History(ctx context.Context) ([]market.DailySnapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, HistoryFile))
	if os.IsNotExist(err) {
		return []market.DailySnapshot{}, nil
	}
	if err != nil {
		return nil, errors.NewPersistence("file", "failed to read history", err)
	}

	var history []market.DailySnapshot
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, errors.NewPersistence("file", "history file is not valid JSON", err)
	}
	return history, nil
}

// Latest reads latest.json
func (s *FileStore) Latest() (market.DailySnapshot, error) {
	var snap market.DailySnapshot
	data, err := os.ReadFile(filepath.Join(s.dir, LatestFile))
	if err != nil {
		return snap, errors.NewPersistence("file", "failed to read latest snapshot", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, errors.NewPersistence("file", "latest snapshot is not valid JSON", err)
	}
	return snap, nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}

// writeJSON writes v with two-space indentation and non-ASCII text kept
// as is, replacing path through a rename
func writeJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.NewPersistence("file", "failed to encode "+filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return errors.NewPersistence("file", "failed to write "+filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.NewPersistence("file", "failed to replace "+filepath.Base(path), err)
	}
	return nil
}
