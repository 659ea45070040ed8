package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const diskFileExt = ".json"

// DiskTier stores one JSON file per key under basePath.
// File layout: {basePath}/{key_safe}.json
// Expiry is judged from the file's modification time, which Set refreshes.
type DiskTier struct {
	now      func() time.Time
	basePath string
	ttl      time.Duration
}

// NewDiskTier creates a disk tier rooted at basePath, creating the directory
// if needed.
func NewDiskTier(basePath string, ttl time.Duration) (*DiskTier, error) {
	if basePath == "" {
		return nil, ErrInvalidBasePath
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &DiskTier{
		basePath: basePath,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

func (d *DiskTier) Name() string { return "disk" }

// makeKeySafe strips anything that could escape the cache directory.
func makeKeySafe(key string) string {
	s := strings.ReplaceAll(key, "/", "")
	s = strings.ReplaceAll(s, "\\", "")
	s = strings.ReplaceAll(s, "..", "")
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}

func (d *DiskTier) path(key string) string {
	return filepath.Join(d.basePath, makeKeySafe(key)+diskFileExt)
}

// Get returns the cached payload for key. A file older than the TTL is
// removed and reported as a miss.
func (d *DiskTier) Get(ctx context.Context, key string) (Payload, bool, error) {
	if err := ctx.Err(); err != nil {
		return Payload{}, false, err
	}
	if makeKeySafe(key) == "" {
		return Payload{}, false, ErrEmptyKey
	}

	path := d.path(key)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Payload{}, false, nil
		}
		return Payload{}, false, err
	}

	if d.now().Sub(info.ModTime()) > d.ttl {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Warn("[CARD-CACHE] failed to remove expired disk entry",
				"path", path,
				"error", rmErr,
			)
		}
		return Payload{}, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Payload{}, false, nil
		}
		return Payload{}, false, err
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		// A corrupt file is useless; drop it so the next Set rewrites it.
		_ = os.Remove(path)
		return Payload{}, false, fmt.Errorf("failed to decode disk entry: %w", err)
	}
	return e.Payload, true, nil
}

// Set writes the payload atomically (temp file then rename).
func (d *DiskTier) Set(ctx context.Context, key string, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if makeKeySafe(key) == "" {
		return ErrEmptyKey
	}

	data, err := json.Marshal(entry{Payload: p, WrittenAt: d.now()})
	if err != nil {
		return fmt.Errorf("failed to encode disk entry: %w", err)
	}

	if err := os.MkdirAll(d.basePath, 0o755); err != nil {
		return err
	}

	path := d.path(key)
	tmp, err := os.CreateTemp(d.basePath, makeKeySafe(key)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Delete removes the entry for key. Missing entries are not an error.
func (d *DiskTier) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if makeKeySafe(key) == "" {
		return ErrEmptyKey
	}
	if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Flush removes every entry file in the cache directory.
func (d *DiskTier) Flush(ctx context.Context) error {
	files, err := d.scan()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	slog.Info("[CARD-CACHE] disk tier flushed", "entries_removed", len(files))
	return nil
}

// Available reports whether the cache directory exists and is writable.
func (d *DiskTier) Available(_ context.Context) bool {
	if err := os.MkdirAll(d.basePath, 0o755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(d.basePath, ".probe-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return true
}

type diskFile struct {
	modTime time.Time
	path    string
}

// scan lists the entry files under basePath, skipping temp files.
func (d *DiskTier) scan() ([]diskFile, error) {
	var files []diskFile

	err := filepath.WalkDir(d.basePath, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			if path != d.basePath {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(e.Name(), diskFileExt) {
			return nil
		}

		info, err := e.Info()
		if err != nil {
			slog.Warn("[CARD-CACHE] failed to stat file during cache scan",
				"path", path,
				"error", err,
			)
			return nil
		}
		files = append(files, diskFile{path: path, modTime: info.ModTime()})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return files, nil
}

// Cleanup removes entries older than the TTL and returns how many were removed.
func (d *DiskTier) Cleanup() (int, error) {
	files, err := d.scan()
	if err != nil {
		return 0, err
	}

	cutoff := d.now().Add(-d.ttl)
	removed := 0
	for _, f := range files {
		if f.modTime.After(cutoff) {
			continue
		}
		if err := os.Remove(f.path); err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("[CARD-CACHE] failed to remove expired disk entry",
					"path", f.path,
					"mod_time", f.modTime,
					"error", err,
				)
			}
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("[CARD-CACHE] disk TTL cleanup completed",
			"entries_removed", removed,
			"ttl", d.ttl,
		)
	}
	return removed, nil
}
