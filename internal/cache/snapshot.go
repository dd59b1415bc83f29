package cache

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"suggestd/internal/common/fsutil"
)

const snapshotVersion = 1

type snapshotRecord struct {
	Key          string `msgpack:"k"`
	Value        string `msgpack:"v"`
	ExpiresAt    int64  `msgpack:"e"`
	LastAccessed int64  `msgpack:"a"`
}

type snapshotFile struct {
	Version int              `msgpack:"version"`
	SavedAt int64            `msgpack:"saved_at"`
	Entries []snapshotRecord `msgpack:"entries"`
}

// WriteSnapshot encodes live entries as zstd-compressed msgpack.
func (c *Cache) WriteSnapshot(w io.Writer) (int, error) {
	c.mu.Lock()
	now := c.cfg.Now()
	snap := snapshotFile{Version: snapshotVersion, SavedAt: now.UnixNano()}
	for _, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			continue
		}
		snap.Entries = append(snap.Entries, snapshotRecord{
			Key:          e.Key,
			Value:        e.Value,
			ExpiresAt:    e.ExpiresAt.UnixNano(),
			LastAccessed: e.LastAccessed.UnixNano(),
		})
	}
	c.mu.Unlock()

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("zstd writer: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(&snap); err != nil {
		zw.Close()
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("flush snapshot: %w", err)
	}
	return len(snap.Entries), nil
}

// ReadSnapshot merges entries from r. Expired records are skipped and the
// capacity invariant holds throughout: when the snapshot is larger than
// MaxSize the least recently accessed records lose.
func (c *Cache) ReadSnapshot(r io.Reader) (int, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()
	var snap snapshotFile
	if err := msgpack.NewDecoder(zr).Decode(&snap); err != nil {
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return 0, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	// oldest first, so capacity evictions drop the stalest records
	sort.Slice(snap.Entries, func(i, j int) bool {
		return snap.Entries[i].LastAccessed < snap.Entries[j].LastAccessed
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.cfg.Now()
	loaded := 0
	for _, rec := range snap.Entries {
		exp := time.Unix(0, rec.ExpiresAt)
		if !now.Before(exp) || rec.Key == "" {
			continue
		}
		if _, exists := c.entries[rec.Key]; !exists && len(c.entries) >= c.cfg.MaxSize {
			c.evictLRULocked()
		}
		c.seq++
		c.entries[rec.Key] = &Entry{
			Key:          rec.Key,
			Value:        rec.Value,
			ExpiresAt:    exp,
			LastAccessed: time.Unix(0, rec.LastAccessed),
			seq:          c.seq,
		}
		loaded++
	}
	c.checkInvariantLocked()
	return loaded, nil
}

// SaveFile writes a snapshot to path atomically.
func (c *Cache) SaveFile(path string) (int, error) {
	var buf bytes.Buffer
	n, err := c.WriteSnapshot(&buf)
	if err != nil {
		return 0, err
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0o600); err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	return n, nil
}

// LoadFile reads a snapshot from path. A missing file loads nothing.
func (c *Cache) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()
	return c.ReadSnapshot(f)
}
