package filterstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/vecindario/discovery/internal/logging"
	"github.com/vecindario/discovery/internal/models"
)

// FileStore keeps each entry in its own file under dir, named
// <namespace>.<key>. Writes are independent per key, matching the
// last-write-wins contract.
type FileStore struct {
	dir       string
	namespace string
	logger    *logging.Logger
}

// NewFile creates a file-backed store rooted at dir. The directory is
// created on first use if missing.
func NewFile(dir, namespace string, logger *logging.Logger) *FileStore {
	return &FileStore{
		dir:       dir,
		namespace: namespace,
		logger:    logger,
	}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, s.namespace+"."+key)
}

func (s *FileStore) Load(ctx context.Context) models.FilterState {
	entries := make(map[string]string, len(Keys))
	for _, key := range Keys {
		data, err := os.ReadFile(s.path(key))
		if err != nil {
			// Absent entries are normal before the first save.
			continue
		}
		entries[key] = string(data)
	}
	return Decode(entries)
}

func (s *FileStore) Save(ctx context.Context, state models.FilterState) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Warn("Failed to create filter store directory", logging.WithFields(map[string]interface{}{
			"dir":   s.dir,
			"error": err.Error(),
		}))
		return
	}

	for key, value := range Encode(state) {
		if err := os.WriteFile(s.path(key), []byte(value), 0o644); err != nil {
			s.logger.Warn("Failed to persist filter entry", logging.WithFields(map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			}))
		}
	}
}

var _ Store = (*FileStore)(nil)
