// Package fs produces the ordered item lists the grid displays: the entries
// of one directory, or every image under a library root. Requests and
// responses travel over channels; a generation counter lets the consumer
// reject responses that were superseded by a newer request.
package fs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/mosaic/internal/debug"
)

type OpType int

const (
	FetchDir OpType = iota
	ScanLibrary
	CancelScan
)

// scanLimit caps how many entries a library scan may return. Beyond this
// the grid stops being a useful way to look at the collection anyway.
const scanLimit = 50000

type Request struct {
	Op   OpType
	Path string
	Gen  int64 // Generation counter to track stale requests
}

type Entry struct {
	Name    string
	Path    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

type Response struct {
	Op        OpType
	Path      string
	Entries   []Entry
	Err       error
	Gen       int64 // Generation counter from request
	Cancelled bool  // True if a scan was cancelled
}

type Provider struct {
	RequestChan  chan Request
	ResponseChan chan Response

	cancelMu   sync.Mutex
	cancelScan context.CancelFunc
}

func NewProvider() *Provider {
	return &Provider{
		RequestChan:  make(chan Request, 10),
		ResponseChan: make(chan Response, 10),
	}
}

func (p *Provider) Start() {
	for req := range p.RequestChan {
		debug.Log(debug.FS, "Request: op=%d path=%q gen=%d", req.Op, req.Path, req.Gen)

		switch req.Op {
		case CancelScan:
			p.cancelMu.Lock()
			if p.cancelScan != nil {
				p.cancelScan()
				p.cancelScan = nil
			}
			p.cancelMu.Unlock()

		case FetchDir:
			p.stopRunningScan()
			resp := p.fetchDir(req.Path)
			resp.Gen = req.Gen
			debug.Log(debug.FS, "FetchDir: path=%q entries=%d err=%v", resp.Path, len(resp.Entries), resp.Err)
			p.ResponseChan <- resp

		case ScanLibrary:
			p.stopRunningScan()
			ctx, cancel := context.WithCancel(context.Background())
			p.cancelMu.Lock()
			p.cancelScan = cancel
			p.cancelMu.Unlock()

			go func(req Request) {
				resp := p.scanLibrary(ctx, req.Path)
				resp.Gen = req.Gen
				debug.Log(debug.FS, "ScanLibrary: path=%q entries=%d cancelled=%v err=%v",
					resp.Path, len(resp.Entries), resp.Cancelled, resp.Err)
				p.ResponseChan <- resp
			}(req)
		}
	}
}

func (p *Provider) stopRunningScan() {
	p.cancelMu.Lock()
	if p.cancelScan != nil {
		p.cancelScan()
		p.cancelScan = nil
	}
	p.cancelMu.Unlock()
}

// fetchDir lists one directory non-recursively. Unreadable entries are
// skipped rather than failing the whole listing.
func (p *Provider) fetchDir(path string) Response {
	dirents, err := os.ReadDir(path)
	if err != nil {
		return Response{Op: FetchDir, Path: path, Err: err}
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			Path:    filepath.Join(path, de.Name()),
			IsDir:   de.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	return Response{Op: FetchDir, Path: path, Entries: entries}
}

// scanLibrary walks a tree collecting every previewable image, for the
// photo-library view. The walk runs on fastwalk's own worker pool; results
// are gathered under a mutex and sorted for a stable list order.
func (p *Provider) scanLibrary(ctx context.Context, root string) Response {
	var mu sync.Mutex
	var entries []Entry

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if de.IsDir() {
			name := de.Name()
			if name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsPreviewable(path) {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return nil
		}

		mu.Lock()
		defer mu.Unlock()
		if len(entries) >= scanLimit {
			return context.Canceled
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})

	if ctx.Err() != nil {
		return Response{Op: ScanLibrary, Path: root, Cancelled: true}
	}
	if err != nil && len(entries) == 0 {
		return Response{Op: ScanLibrary, Path: root, Err: err}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return Response{Op: ScanLibrary, Path: root, Entries: entries}
}

// previewableExts are the formats the thumbnail decoder understands.
var previewableExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".heic": true,
	".heif": true,
}

// IsPreviewable reports whether the pipeline can thumbnail this path.
func IsPreviewable(path string) bool {
	return previewableExts[strings.ToLower(filepath.Ext(path))]
}
