package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"fishbot-economy-api/internal/logging"
)

// fileNames maps resources to the file names the bot has always used.
var fileNames = map[string]string{
	ResourceCatalog:   "fish.json",
	ResourceAccounts:  "users.json",
	ResourceCooldowns: "daily_rewards.json",
}

// FileSnapshotRepository stores each resource as a JSON file in one directory.
// Writes go to a temp file that is renamed over the target.
type FileSnapshotRepository struct {
	dir string
	mu  sync.Mutex
	log *logrus.Entry
}

// NewFileSnapshotRepository creates dir if needed.
func NewFileSnapshotRepository(dir string) (*FileSnapshotRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	r := &FileSnapshotRepository{dir: dir, log: logging.Component("file-repository")}
	r.log.WithField("dir", dir).Info("initialized")
	return r, nil
}

// Path returns the file backing resource.
func (r *FileSnapshotRepository) Path(resource string) string {
	name, ok := fileNames[resource]
	if !ok {
		name = resource + ".json"
	}
	return filepath.Join(r.dir, name)
}

// LoadSnapshot reads the file of resource.
func (r *FileSnapshotRepository) LoadSnapshot(ctx context.Context, resource string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.Path(resource))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read %s snapshot: %w", resource, err)
	}
	return data, nil
}

// SaveSnapshot atomically replaces the file of resource.
func (r *FileSnapshotRepository) SaveSnapshot(ctx context.Context, resource string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	target := r.Path(resource)
	tmp, err := os.CreateTemp(r.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s snapshot: %w", resource, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s snapshot: %w", resource, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s snapshot: %w", resource, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to replace %s snapshot: %w", resource, err)
	}
	return nil
}

// GetStats returns size and modification time of every snapshot file.
func (r *FileSnapshotRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	names := make([]string, 0, len(fileNames))
	for res := range fileNames {
		names = append(names, res)
	}
	sort.Strings(names)

	resources := make(map[string]interface{}, len(names))
	for _, res := range names {
		info, err := os.Stat(r.Path(res))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s snapshot: %w", res, err)
		}
		resources[res] = map[string]interface{}{
			"bytes":    info.Size(),
			"saved_at": info.ModTime().UTC(),
		}
	}

	return map[string]interface{}{
		"backend":   "file",
		"dir":       r.dir,
		"resources": resources,
	}, nil
}

// Close is a no-op.
func (r *FileSnapshotRepository) Close() error {
	return nil
}

var _ SnapshotRepository = (*FileSnapshotRepository)(nil)
