package services

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"superstore-dashboard/internal/models"
)

const cacheVersion = "v3"

var errStaleSnapshot = errors.New("snapshot is stale")

// SnapshotKey pins a snapshot to the source file state and the parse settings
// it was produced from.
type SnapshotKey struct {
	Source  string
	Loader  string
	ModTime time.Time
}

type snapshot struct {
	Key     SnapshotKey
	Records []models.Record
}

// SnapshotCache keeps parsed records on disk so a restart can skip parsing.
// A snapshot is only valid for the exact source mtime and loader settings it
// was built from.
type SnapshotCache struct {
	dir string
}

func NewSnapshotCache(dir string) *SnapshotCache {
	return &SnapshotCache{dir: dir}
}

// SourceKey describes source as it is right now under opts. Take it before
// reading the file so a write during the parse leaves the snapshot stale.
func SourceKey(source string, opts LoaderOptions) (SnapshotKey, error) {
	info, err := os.Stat(source)
	if err != nil {
		return SnapshotKey{}, err
	}
	return SnapshotKey{Source: source, Loader: opts.Fingerprint(), ModTime: info.ModTime()}, nil
}

func (c *SnapshotCache) filename(source string) string {
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = source
	}
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(abs)
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func (c *SnapshotCache) Save(key SnapshotKey, records []models.Record) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, "snapshot-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	snap := snapshot{Key: key, Records: records}
	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.filename(key.Source))
}

// Load returns the cached records for key, or an error when there is no
// usable snapshot.
func (c *SnapshotCache) Load(key SnapshotKey) ([]models.Record, error) {
	file, err := os.Open(c.filename(key.Source))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	switch {
	case snap.Key.Loader != key.Loader:
		return nil, fmt.Errorf("%w: loader settings changed", errStaleSnapshot)
	case !snap.Key.ModTime.Equal(key.ModTime):
		return nil, fmt.Errorf("%w: source modified at %s", errStaleSnapshot, key.ModTime.Format(time.RFC3339))
	}
	if len(snap.Records) == 0 {
		return nil, ErrNoRecords
	}
	return snap.Records, nil
}

func (c *SnapshotCache) Invalidate(source string) error {
	err := os.Remove(c.filename(source))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
