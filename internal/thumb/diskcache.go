package thumb

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"

	"github.com/justyntemme/mosaic/internal/debug"
)

// DiskCache persists scaled thumbnails as JPEG files so revisited folders
// warm up without re-decoding the originals. Keys incorporate the source's
// modification time and size, so an edited file naturally misses.
type DiskCache struct {
	dir      string
	maxFiles int
	maxBytes int64
}

// NewDiskCache opens (creating if needed) a cache directory. Pass maxFiles
// or maxBytes as 0 for the defaults.
func NewDiskCache(dir string, maxFiles int, maxBytes int64) (*DiskCache, error) {
	if maxFiles <= 0 {
		maxFiles = 10000
	}
	if maxBytes <= 0 {
		maxBytes = 500 * 1024 * 1024
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir, maxFiles: maxFiles, maxBytes: maxBytes}, nil
}

// DefaultDir returns the per-user cache directory for thumbnails.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "mosaic", "thumbs"), nil
}

// key derives the cache file stem from the source's identity: absolute
// path, mtime and size.
func (d *DiskCache) key(locator string) (string, error) {
	abs, err := filepath.Abs(locator)
	if err != nil {
		abs = locator
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(abs))
	fmt.Fprintf(h, "|%d|%d", info.ModTime().UnixNano(), info.Size())
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (d *DiskCache) path(key string, bucket int) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s_%d.jpg", key, bucket))
}

// Load returns the cached bitmap for (locator, bucket) if present.
func (d *DiskCache) Load(locator string, bucket int) (image.Image, bool) {
	key, err := d.key(locator)
	if err != nil {
		return nil, false
	}
	f, err := os.Open(d.path(key, bucket))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, false
	}
	return img, true
}

// Store writes a bitmap for (locator, bucket). Failures are silent; the
// disk cache is an optimization, never a source of truth.
func (d *DiskCache) Store(locator string, bucket int, img image.Image) {
	key, err := d.key(locator)
	if err != nil {
		return
	}
	f, err := os.Create(d.path(key, bucket))
	if err != nil {
		return
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 85}); err != nil {
		f.Close()
		os.Remove(f.Name())
		return
	}
	f.Close()
}

// Sweep removes the oldest cache files until the directory is back under
// 80% of its limits. An advisory file lock keeps concurrent instances from
// sweeping the same directory at once; if another instance holds the lock
// the sweep is skipped.
func (d *DiskCache) Sweep() {
	lock := flock.New(filepath.Join(d.dir, ".sweep.lock"))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		return
	}
	defer lock.Unlock()

	dirents, err := os.ReadDir(d.dir)
	if err != nil {
		return
	}

	type cacheFile struct {
		name  string
		size  int64
		mtime int64
	}
	var files []cacheFile
	var totalBytes int64

	for _, de := range dirents {
		if de.IsDir() || filepath.Ext(de.Name()) != ".jpg" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		files = append(files, cacheFile{de.Name(), info.Size(), info.ModTime().UnixNano()})
		totalBytes += info.Size()
	}

	if len(files) <= d.maxFiles && totalBytes <= d.maxBytes {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mtime < files[j].mtime })

	fileTarget := d.maxFiles * 8 / 10
	byteTarget := d.maxBytes * 8 / 10
	removed := 0
	for _, f := range files {
		if len(files)-removed <= fileTarget && totalBytes <= byteTarget {
			break
		}
		if os.Remove(filepath.Join(d.dir, f.name)) == nil {
			removed++
			totalBytes -= f.size
		}
	}
	debug.Log(debug.THUMB, "disk cache sweep: removed %d files, %d bytes remain", removed, totalBytes)
}
