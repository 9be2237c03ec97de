package app

import (
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/justyntemme/mosaic/internal/config"
	"github.com/justyntemme/mosaic/internal/debug"
	"github.com/justyntemme/mosaic/internal/fs"
	"github.com/justyntemme/mosaic/internal/grid"
	"github.com/justyntemme/mosaic/internal/store"
	"github.com/justyntemme/mosaic/internal/thumb"
)

// processEvents is the single consumer for every background channel:
// directory listings, store responses, finished thumbnails and watcher
// notifications. It mutates state under mu and invalidates the window.
func (o *Orchestrator) processEvents() {
	var watchCh <-chan string
	if o.watcher != nil {
		watchCh = o.watcher.Notify()
	}
	for {
		select {
		case resp := <-o.provider.ResponseChan:
			o.handleFSResponse(resp)
		case resp := <-o.store.ResponseChan:
			o.handleStoreResponse(resp)
		case res := <-o.pipeline.Results():
			o.handleThumbResult(res)
		case path := <-watchCh:
			o.handleWatchNotify(path)
		}
	}
}

func (o *Orchestrator) handleFSResponse(resp fs.Response) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if resp.Gen != o.fsGen {
		debug.Log(debug.FS, "dropping stale response gen=%d current=%d", resp.Gen, o.fsGen)
		return
	}
	if resp.Cancelled {
		o.state.ScanActive = false
		return
	}
	if resp.Err != nil {
		log.Printf("FS Error: %v", resp.Err)
		o.state.StatusErr = resp.Err.Error()
		o.state.ScanActive = false
		o.window.Invalidate()
		return
	}

	pathChanged := resp.Path != o.state.CurrentPath || o.state.Positions == nil
	o.state.CurrentPath = resp.Path
	o.state.StatusErr = ""
	if resp.Op == fs.ScanLibrary {
		o.state.ScanActive = false
	}
	o.state.CanBack = !o.libraryMode && filepath.Dir(resp.Path) != resp.Path

	o.replaceItems(resp.Entries)

	// A new list means every cached bitmap may describe a file that is
	// gone or changed; the disk cache still cushions re-decodes.
	o.pipeline.Invalidate()
	o.preheat.Reset()
	if pathChanged {
		o.renderer.ResetScroll()
	}
	if o.lastWidth > 0 {
		o.relayout(o.lastWidth)
	}
	if o.watcher != nil && !o.libraryMode {
		o.watcher.SetPath(resp.Path)
	}
	if !o.libraryMode && o.storeOK {
		o.sendStore(store.Request{Op: store.SaveSetting, Key: "last_path", Value: resp.Path})
	}
	o.window.Invalidate()
}

// replaceItems swaps in a freshly listed item set, carrying over remembered
// aspect ratios and dropping selection entries that vanished. Caller holds mu.
func (o *Orchestrator) replaceItems(entries []fs.Entry) {
	cfg := o.cfg.Get()
	items := make([]grid.Item, 0, len(entries))
	dirs := make(map[string]bool)

	for _, e := range entries {
		if !cfg.Behavior.ShowDotfiles && !o.libraryMode && strings.HasPrefix(e.Name, ".") {
			continue
		}
		kind := grid.KindFolder
		if !e.IsDir && fs.IsPreviewable(e.Path) {
			kind = grid.KindPreviewable
		}
		it := grid.Item{
			ID:      e.Path,
			Locator: e.Path,
			Name:    e.Name,
			Kind:    kind,
			Size:    e.Size,
			ModTime: e.ModTime,
		}
		if a, ok := o.aspects[e.Path]; ok {
			it.Aspect = a
		}
		if e.IsDir {
			dirs[e.Path] = true
		}
		items = append(items, it)
	}

	o.state.Items = items
	o.dirs = dirs
	o.state.Reindex()
	o.selection().Reconcile(items)
	if o.state.FocusedID != "" && o.state.Item(o.state.FocusedID) == nil {
		o.state.FocusedID = ""
	}
	debug.Log(debug.APP, "item list replaced: %d items", len(items))
}

func (o *Orchestrator) handleStoreResponse(resp store.Response) {
	if resp.Err != nil {
		log.Printf("Store Error: %v", resp.Err)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	switch resp.Op {
	case store.FetchSettings:
		if o.pendingRestore {
			o.pendingRestore = false
			path := resp.Settings["last_path"]
			if path == "" || !isDir(path) {
				path = o.defaultPath("")
			}
			o.navigate(path)
		}

	case store.FetchAspects:
		o.aspects = resp.Aspects
		if o.aspects == nil {
			o.aspects = make(map[string]float64)
		}
		changed := false
		for i := range o.state.Items {
			it := &o.state.Items[i]
			if a, ok := o.aspects[it.Locator]; ok && it.Aspect == 0 {
				it.Aspect = a
				changed = true
			}
		}
		if changed && o.lastWidth > 0 {
			o.relayout(o.lastWidth)
		}
	}
	o.window.Invalidate()
}

// handleThumbResult feeds a finished decode back into layout: the refined
// aspect ratio is remembered and, when it materially moves a tile height,
// the whole grid is repacked.
func (o *Orchestrator) handleThumbResult(res thumb.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if res.Err != nil {
		debug.Log(debug.THUMB, "decode failed for %s: %v", res.Locator, res.Err)
		o.window.Invalidate()
		return
	}
	if res.Aspect > 0 {
		o.aspects[res.Locator] = res.Aspect
		o.sendStore(store.Request{Op: store.SaveAspect, Locator: res.Locator, Ratio: res.Aspect})

		if it := o.state.Item(res.Locator); it != nil {
			before := it.EffectiveAspect()
			it.Aspect = res.Aspect
			if math.Abs(before-it.EffectiveAspect()) > 0.001 && o.lastWidth > 0 {
				o.relayout(o.lastWidth)
			}
		}
	}
	o.window.Invalidate()
}

func (o *Orchestrator) handleWatchNotify(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.libraryMode || path != o.state.CurrentPath {
		return
	}
	debug.Log(debug.APP, "directory changed, reloading %s", path)
	o.requestDir(path)
}

// relayout repacks the masonry for the current width and pushes the derived
// geometry to the renderer and pipeline. Caller holds mu.
func (o *Orchestrator) relayout(width float64) {
	cfg := o.cfg.Get()
	o.state.Positions = grid.Layout(o.state.Items, gridParams(cfg, width))
	o.lastWidth = width
	o.renderer.LabelHeight = cfg.Grid.LabelHeight

	px := int(o.state.Positions.ColumnWidth * cfg.Thumbs.QualityMultiplier)
	if px > 0 && px != o.targetPx {
		o.targetPx = px
		o.renderer.TargetPx = px
		o.pipeline.Retarget(px)
	}
	o.preheat.Reset()
}

func gridParams(cfg config.Config, width float64) grid.Params {
	return grid.Params{
		AvailableWidth:   width,
		IdealColumnWidth: float64(cfg.Grid.IdealColumnWidth),
		Spacing:          float64(cfg.Grid.ColumnSpacing),
		TopInset:         float64(cfg.Grid.TopInset),
		BottomInset:      float64(cfg.Grid.BottomInset),
		SideInset:        float64(cfg.Grid.SideInset),
		LabelHeight:      float64(cfg.Grid.LabelHeight),
		TileHeight:       float64(cfg.Grid.TileHeight),
	}
}

// updatePreheat drives the prefetch controller from the current viewport.
// Caller holds mu; the controller calls back into resolveBand and the
// prefetch target on the same goroutine.
func (o *Orchestrator) updatePreheat() {
	if o.state.Positions == nil {
		return
	}
	o.preheat.ViewportChanged(o.renderer.Scroll(), o.renderer.ViewportHeight(),
		o.state.Positions.ContentHeight)
}

// resolveBand maps a vertical content band to the ids inside it.
func (o *Orchestrator) resolveBand(top, bottom float64) []string {
	if o.state.Positions == nil {
		return nil
	}
	return o.state.Positions.ItemsIn(top, bottom)
}

// prefetchTarget adapts the pipeline to the preheat controller, translating
// item ids to previewable locators. Only driven from updatePreheat, with mu
// already held.
type prefetchTarget struct{ o *Orchestrator }

func (t prefetchTarget) StartPrefetch(ids []string) {
	locs := t.o.previewableLocators(ids)
	if len(locs) > 0 {
		t.o.pipeline.StartPrefetch(locs, t.o.targetPx)
	}
}

func (t prefetchTarget) StopPrefetch(ids []string) {
	locs := t.o.previewableLocators(ids)
	if len(locs) > 0 {
		t.o.pipeline.StopPrefetch(locs)
	}
}

func (o *Orchestrator) previewableLocators(ids []string) []string {
	locs := make([]string, 0, len(ids))
	for _, id := range ids {
		if it := o.state.Item(id); it != nil && it.Kind == grid.KindPreviewable {
			locs = append(locs, it.Locator)
		}
	}
	return locs
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
