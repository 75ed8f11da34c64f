// Package checkpoint persists per-category upload progress so an
// interrupted run can resume without re-uploading completed batches.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mpawlak/statsync/pkg/models"
)

// Store reads and writes the checkpoint file. The file is rewritten in full
// after every committed batch; a missing file means a fresh start. A single
// running instance is assumed to own the file — concurrent invocations
// racing on the same path are not defended against.
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load reads the checkpoint. An absent file yields an empty checkpoint and
// no error.
func (s *Store) Load() (*models.Checkpoint, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewCheckpoint(), nil
		}
		return nil, fmt.Errorf("reading checkpoint %s: %w", s.Path, err)
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parsing checkpoint %s: %w", s.Path, err)
	}
	if cp.Categories == nil {
		cp.Categories = make(map[models.Category]models.CategoryProgress)
	}
	return &cp, nil
}

// Save writes the checkpoint atomically: the JSON is written to a temp file
// in the same directory and renamed over the target, so a crash mid-write
// never leaves a truncated checkpoint behind.
func (s *Store) Save(cp *models.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.json")
	if err != nil {
		return fmt.Errorf("creating temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing checkpoint %s: %w", s.Path, err)
	}
	return nil
}

// Clear removes the checkpoint file. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing checkpoint %s: %w", s.Path, err)
	}
	return nil
}
