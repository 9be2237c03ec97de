package app

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"

	"github.com/justyntemme/mosaic/internal/config"
	"github.com/justyntemme/mosaic/internal/debug"
	"github.com/justyntemme/mosaic/internal/fs"
	"github.com/justyntemme/mosaic/internal/grid"
	"github.com/justyntemme/mosaic/internal/preheat"
	"github.com/justyntemme/mosaic/internal/store"
	"github.com/justyntemme/mosaic/internal/thumb"
	"github.com/justyntemme/mosaic/internal/ui"
)

const watcherDebounce = 200 * time.Millisecond

// Orchestrator owns the application state and wires the subsystems
// together: the filesystem provider, the thumbnail pipeline, the preheat
// controller, the settings store and the renderer. All state mutation
// happens under mu, whether it comes from the frame loop or from the
// background event goroutine.
type Orchestrator struct {
	window   *app.Window
	cfg      *config.Manager
	provider *fs.Provider
	store    *store.DB
	pipeline *thumb.Pipeline
	watcher  *Watcher
	renderer *ui.Renderer
	preheat  *preheat.Controller

	mu           sync.Mutex
	state        ui.State
	dirs         map[string]bool // item id -> is a directory
	aspects      map[string]float64
	history      []string
	historyIndex int
	fsGen        int64
	lastWidth    float64
	targetPx     int

	libraryMode    bool
	storeOK        bool
	pendingRestore bool
}

func NewOrchestrator(libraryMode bool) *Orchestrator {
	return &Orchestrator{
		window:       new(app.Window),
		cfg:          config.NewManager(),
		provider:     fs.NewProvider(),
		store:        store.NewDB(),
		renderer:     ui.NewRenderer(),
		aspects:      make(map[string]float64),
		dirs:         make(map[string]bool),
		historyIndex: -1,
		libraryMode:  libraryMode,
	}
}

func (o *Orchestrator) Run(startPath string) error {
	o.window.Option(app.Title("Mosaic"), app.Size(unit.Dp(1000), unit.Dp(700)))

	if err := o.cfg.Load(); err != nil {
		log.Printf("Config error: %v", err)
	}
	cfg := o.cfg.Get()
	if perr := o.cfg.ParseError(); perr != nil {
		o.state.StatusErr = "config: " + perr.Error()
	}

	if err := o.store.Open(store.DefaultPath()); err != nil {
		log.Printf("Failed to open DB: %v", err)
	} else {
		o.storeOK = true
		defer o.store.Close()
	}

	var disk *thumb.DiskCache
	if cfg.Thumbs.DiskCache {
		if dir, err := thumb.DefaultDir(); err == nil {
			if d, err := thumb.NewDiskCache(dir, 4096, 512<<20); err == nil {
				disk = d
				go d.Sweep()
			}
		}
	}

	o.pipeline = thumb.NewPipeline(thumb.Options{
		Capacity:   cfg.Thumbs.CacheCapacity,
		Workers:    cfg.Thumbs.Workers,
		QueueDepth: 256,
		Buckets: thumb.Buckets{
			Granularity: cfg.Thumbs.BucketGranularity,
			Min:         cfg.Thumbs.MinPixel,
			Max:         cfg.Thumbs.MaxPixel,
			Tolerance:   cfg.Thumbs.SatisfyTolerance,
		},
		Decoder: thumb.FileDecoder{},
		Disk:    disk,
	})
	defer o.pipeline.Close()
	o.renderer.Thumbs = o.pipeline

	watcher, err := NewWatcher(watcherDebounce)
	if err != nil {
		log.Printf("Failed to start watcher: %v", err)
	} else {
		o.watcher = watcher
		defer watcher.Close()
	}

	o.preheat = preheat.NewController(o.resolveBand, prefetchTarget{o},
		cfg.Preheat.MarginFactor, cfg.Preheat.HysteresisFraction)

	go o.provider.Start()
	if o.storeOK {
		go o.store.Start()
		o.sendStore(store.Request{Op: store.FetchSettings})
		o.sendStore(store.Request{Op: store.FetchAspects})
	}
	go o.processEvents()

	// Initial location. With no explicit path the last visited directory
	// is restored once settings arrive; until then the window stays empty.
	o.mu.Lock()
	o.state.LibraryMode = o.libraryMode
	switch {
	case o.libraryMode:
		o.scanLibrary(o.defaultPath(startPath))
	case startPath != "":
		o.navigate(startPath)
	case o.storeOK && cfg.Behavior.RestoreLastPath:
		o.pendingRestore = true
	default:
		o.navigate(o.defaultPath(""))
	}
	o.mu.Unlock()

	var ops op.Ops
	for {
		switch e := o.window.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)

			o.mu.Lock()
			if w := float64(e.Size.X); w != o.lastWidth && w > 0 {
				o.relayout(w)
			}
			evt := o.renderer.Frame(gtx, &o.state)
			o.handleUIEvent(evt)
			o.updatePreheat()
			o.mu.Unlock()

			e.Frame(gtx.Ops)
		}
	}
}

func (o *Orchestrator) defaultPath(startPath string) string {
	if startPath != "" {
		return startPath
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	wd, _ := os.Getwd()
	return wd
}

// handleUIEvent applies one user intention. Caller holds mu.
func (o *Orchestrator) handleUIEvent(evt ui.UIEvent) {
	switch evt.Action {
	case ui.ActionNone:
		return

	case ui.ActionMove:
		id, moved := grid.Move(o.state.Items, o.state.Positions, o.state.FocusedID, evt.Dir)
		if !moved {
			return
		}
		o.state.FocusedID = id
		o.selection().Replace(id)
		if rec, ok := o.state.Positions.Record(id); ok {
			o.renderer.EnsureVisible(rec)
		}

	case ui.ActionSelect:
		o.state.FocusedID = evt.ID
		o.selection().Replace(evt.ID)

	case ui.ActionToggleSelect:
		o.state.FocusedID = evt.ID
		o.selection().Toggle(evt.ID)

	case ui.ActionClearSelection:
		o.selection().Clear()
		o.state.FocusedID = ""

	case ui.ActionActivate:
		item := o.state.Item(evt.ID)
		if item == nil {
			return
		}
		if o.dirs[item.ID] {
			o.navigate(item.Locator)
		} else if err := platformOpen(item.Locator); err != nil {
			log.Printf("Error opening file: %v", err)
		}

	case ui.ActionBack:
		o.goBack()

	case ui.ActionToggleDotfiles:
		if o.libraryMode {
			return
		}
		o.cfg.SetShowDotfiles(!o.cfg.Get().Behavior.ShowDotfiles)
		o.requestDir(o.state.CurrentPath)

	case ui.ActionQualityUp, ui.ActionQualityDown:
		step := 0.25
		if evt.Action == ui.ActionQualityDown {
			step = -step
		}
		q := o.cfg.Get().Thumbs.QualityMultiplier + step
		if q < 0.25 {
			q = 0.25
		}
		if q > 4 {
			q = 4
		}
		o.cfg.SetQualityMultiplier(q)
		if o.lastWidth > 0 {
			o.relayout(o.lastWidth)
		}
	}
	o.window.Invalidate()
}

// navigate loads a directory, recording it in history. Caller holds mu.
func (o *Orchestrator) navigate(path string) {
	if o.libraryMode {
		return
	}
	if o.historyIndex >= 0 && o.historyIndex < len(o.history)-1 {
		o.history = o.history[:o.historyIndex+1]
	}
	o.history = append(o.history, path)
	o.historyIndex = len(o.history) - 1
	o.requestDir(path)
}

func (o *Orchestrator) goBack() {
	parent := filepath.Dir(o.state.CurrentPath)
	if parent == o.state.CurrentPath {
		return
	}
	if o.historyIndex > 0 && o.history[o.historyIndex-1] == parent {
		o.historyIndex--
	} else {
		o.history = append(o.history, parent)
		o.historyIndex = len(o.history) - 1
	}
	o.requestDir(parent)
}

func (o *Orchestrator) requestDir(path string) {
	o.fsGen++
	debug.Log(debug.NAV, "navigate to %s (gen %d)", path, o.fsGen)
	o.sendFS(fs.Request{Op: fs.FetchDir, Path: path, Gen: o.fsGen})
}

func (o *Orchestrator) scanLibrary(root string) {
	o.fsGen++
	o.state.CurrentPath = root
	o.state.ScanActive = true
	debug.Log(debug.NAV, "scanning library %s (gen %d)", root, o.fsGen)
	o.sendFS(fs.Request{Op: fs.ScanLibrary, Path: root, Gen: o.fsGen})
}

func (o *Orchestrator) selection() *grid.Selection {
	if o.state.Selection == nil {
		o.state.Selection = grid.NewSelection()
	}
	return o.state.Selection
}

// sendFS and sendStore never block while mu is held; a full channel falls
// back to a goroutine so the frame loop cannot deadlock against a busy
// worker.
func (o *Orchestrator) sendFS(req fs.Request) {
	select {
	case o.provider.RequestChan <- req:
	default:
		go func() { o.provider.RequestChan <- req }()
	}
}

func (o *Orchestrator) sendStore(req store.Request) {
	if !o.storeOK {
		return
	}
	select {
	case o.store.RequestChan <- req:
	default:
		go func() { o.store.RequestChan <- req }()
	}
}

// Main runs the application. Gio owns the main thread, so the event loop
// runs on its own goroutine and exits the process when the window closes.
func Main(startPath string, libraryMode bool) {
	go func() {
		o := NewOrchestrator(libraryMode)
		if err := o.Run(startPath); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}
