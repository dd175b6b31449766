package store

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/rcliao/profile-memory/internal/model"
)

// RecordCache keeps decoded collections keyed by file path. Entries are
// trusted only while the file's modification time and size are unchanged,
// so writes made by other processes are never masked.
type RecordCache struct {
	c *ristretto.Cache
}

type cachedCollection struct {
	modTime time.Time
	size    int64
	records []model.Memory
}

// NewRecordCache creates a cache bounded to roughly maxBytes of file content.
func NewRecordCache(maxBytes int64) (*RecordCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create record cache: %w", err)
	}
	return &RecordCache{c: c}, nil
}

func (rc *RecordCache) get(path string, info os.FileInfo) ([]model.Memory, bool) {
	if rc == nil {
		return nil, false
	}
	v, ok := rc.c.Get(path)
	if !ok {
		return nil, false
	}
	entry, ok := v.(cachedCollection)
	if !ok || !entry.modTime.Equal(info.ModTime()) || entry.size != info.Size() {
		return nil, false
	}
	cacheHitsTotal.Inc()
	return cloneRecords(entry.records), true
}

func (rc *RecordCache) set(path string, info os.FileInfo, records []model.Memory) {
	if rc == nil {
		return
	}
	rc.c.Set(path, cachedCollection{
		modTime: info.ModTime(),
		size:    info.Size(),
		records: cloneRecords(records),
	}, info.Size()+1)
}

func (rc *RecordCache) invalidate(path string) {
	if rc == nil {
		return
	}
	rc.c.Del(path)
}

// Close releases the cache's background goroutines.
func (rc *RecordCache) Close() {
	if rc != nil {
		rc.c.Close()
	}
}

func cloneRecords(records []model.Memory) []model.Memory {
	out := make([]model.Memory, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
