package thumb

import (
	"container/list"
	"context"
	"errors"
	"image"
	"sync"

	"github.com/justyntemme/mosaic/internal/debug"
)

// EntryState is the lifecycle of one cache key.
// absent -> pending -> ready | failed. Ready and failed are terminal until
// the pipeline is invalidated or the entry is evicted.
type EntryState int

const (
	StateAbsent EntryState = iota
	StatePending
	StateReady
	StateFailed
)

// Result is one completed decode, delivered on the Results channel. Exactly
// one Result is emitted per decode regardless of how many requests attached
// to it. Img is nil when Err is set.
type Result struct {
	Locator string
	Bucket  int
	Img     image.Image
	Aspect  float64 // width/height of the decoded bitmap
	Err     error
}

// Options configures a Pipeline. Zero values fall back to sane defaults.
type Options struct {
	Capacity   int     // max ready bitmaps kept in memory
	Workers    int     // decode goroutines
	QueueDepth int     // pending request queue bound
	Buckets    Buckets // target-size bucketing
	Decoder    Decoder
	Disk       *DiskCache // optional persistent cache
}

type entry struct {
	locator string
	state   EntryState
	bucket  int
	img     image.Image
	aspect  float64
	elem    *list.Element // ready entries only
	cancel  context.CancelFunc
	stopped bool  // pending decode was cancelled by StopPrefetch
	gen     int64 // pipeline generation at start
	seq     int64 // decode attempt counter for this entry
}

type task struct {
	locator string
	bucket  int
	gen     int64
	seq     int64
	ctx     context.Context
}

// Pipeline owns the thumbnail cache and its decode workers. It is
// constructed per session and carries no process-wide state; all entry
// transitions happen under one mutex so there is a single writer at a time.
type Pipeline struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries map[string]*entry
	lru     *list.List // ready entries, front = most recent
	queue   []*task    // LIFO: newest requests decode first
	gen     int64
	closed  bool

	capacity   int
	queueDepth int
	buckets    Buckets
	decoder    Decoder
	disk       *DiskCache

	results chan Result
	done    chan struct{}
}

// NewPipeline creates a pipeline and starts its workers.
func NewPipeline(opts Options) *Pipeline {
	if opts.Capacity <= 0 {
		opts.Capacity = 512
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 128
	}
	if opts.Buckets == (Buckets{}) {
		opts.Buckets = DefaultBuckets()
	}
	if opts.Decoder == nil {
		opts.Decoder = FileDecoder{}
	}

	p := &Pipeline{
		entries:    make(map[string]*entry),
		lru:        list.New(),
		capacity:   opts.Capacity,
		queueDepth: opts.QueueDepth,
		buckets:    opts.Buckets.normalized(),
		decoder:    opts.Decoder,
		disk:       opts.Disk,
		results:    make(chan Result, 64),
		done:       make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < opts.Workers; i++ {
		go p.worker()
	}
	return p
}

// Results is the completion channel. The owner must drain it from its event
// loop; shared state is only mutated there, never on a worker goroutine.
func (p *Pipeline) Results() <-chan Result { return p.results }

// Request asks for the thumbnail of locator at the given target size.
// The returned bitmap is the best immediately-available one: the cached
// bitmap when ready, the stale smaller bitmap while an upgrade decodes, the
// fallback for a failed source, or nil. final is true when no completion is
// outstanding for this key; a false return means a Result will follow.
// A request for a key that is already pending attaches to the in-flight
// decode instead of starting a second one.
func (p *Pipeline) Request(locator string, targetPx int) (img image.Image, final bool) {
	want := p.buckets.For(targetPx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, true
	}

	e := p.entries[locator]
	if e == nil {
		e = &entry{locator: locator}
		p.entries[locator] = e
		p.startLocked(e, want)
		return nil, false
	}

	switch e.state {
	case StateReady:
		if p.buckets.Satisfies(e.bucket, want) {
			p.lru.MoveToFront(e.elem)
			return e.img, true
		}
		// Cached bitmap is too small for the new target: re-decode but
		// keep handing back the stale bitmap until the upgrade lands.
		p.lru.Remove(e.elem)
		e.elem = nil
		p.startLocked(e, want)
		return e.img, false

	case StatePending:
		if e.stopped {
			// The decode was cancelled by a stop before it finished;
			// this request revives it.
			p.startLocked(e, want)
		}
		return e.img, false

	case StateFailed:
		// Terminal until invalidation; no retry storm.
		return Fallback(want), true
	}

	return nil, false
}

// startLocked transitions an entry to pending and enqueues its decode.
func (p *Pipeline) startLocked(e *entry, bucket int) {
	ctx, cancel := context.WithCancel(context.Background())
	e.state = StatePending
	e.bucket = bucket
	e.cancel = cancel
	e.stopped = false
	e.gen = p.gen
	e.seq++

	if len(p.queue) >= p.queueDepth {
		// The queue is full of requests that scrolled out of relevance;
		// drop the oldest to make room.
		old := p.queue[0]
		p.queue = p.queue[1:]
		p.dropLocked(old)
	}
	p.queue = append(p.queue, &task{locator: e.locator, bucket: bucket, gen: p.gen, seq: e.seq, ctx: ctx})
	debug.Log(debug.THUMB_ENTRY, "pending %s bucket=%d queue=%d", e.locator, bucket, len(p.queue))
	p.cond.Signal()
}

// dropLocked abandons a queued task that never started.
func (p *Pipeline) dropLocked(t *task) {
	e := p.entries[t.locator]
	if e == nil || e.gen != t.gen || e.seq != t.seq || e.state != StatePending {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	delete(p.entries, t.locator)
}

// StartPrefetch warms the cache for a set of locators. Already-cached and
// already-pending keys are no-ops.
func (p *Pipeline) StartPrefetch(locators []string, targetPx int) {
	for _, loc := range locators {
		p.Request(loc, targetPx)
	}
}

// StopPrefetch cancels outstanding decodes for locators that scrolled out of
// the preheat window. It is advisory: completed entries are untouched, so a
// bitmap that is already displayed is never evicted by a stop.
func (p *Pipeline) StopPrefetch(locators []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, loc := range locators {
		e := p.entries[loc]
		if e != nil && e.state == StatePending && e.cancel != nil {
			debug.Log(debug.THUMB_ENTRY, "cancel %s", loc)
			e.cancel()
			e.stopped = true
		}
	}
}

// Invalidate clears every entry and cancels all outstanding decodes. Used
// when the item list is replaced. Invalidating an empty pipeline, or
// invalidating twice, is a no-op.
func (p *Pipeline) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	for _, e := range p.entries {
		if e.cancel != nil {
			e.cancel()
		}
	}
	p.entries = make(map[string]*entry)
	p.lru = list.New()
	p.queue = nil
	debug.Log(debug.THUMB, "invalidated (gen %d)", p.gen)
}

// Retarget applies a new target size after a quality/size settings change:
// entries whose bucket no longer satisfies the new target are cleared,
// including failed entries, which become eligible for a fresh attempt.
func (p *Pipeline) Retarget(targetPx int) {
	want := p.buckets.For(targetPx)

	p.mu.Lock()
	defer p.mu.Unlock()
	for loc, e := range p.entries {
		switch e.state {
		case StateReady:
			if !p.buckets.Satisfies(e.bucket, want) {
				p.lru.Remove(e.elem)
				delete(p.entries, loc)
			}
		case StateFailed:
			delete(p.entries, loc)
		}
	}
}

// State reports the cache state for a locator.
func (p *Pipeline) State(locator string) EntryState {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entries[locator]
	if e == nil {
		return StateAbsent
	}
	return e.state
}

// Len returns the number of ready bitmaps in memory.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lru.Len()
}

// Close stops the workers. Outstanding decodes are cancelled.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, e := range p.entries {
		if e.cancel != nil {
			e.cancel()
		}
	}
	p.cond.Broadcast()
	p.mu.Unlock()
	close(p.done)
}

func (p *Pipeline) worker() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.closed {
			p.mu.Unlock()
			return
		}
		last := len(p.queue) - 1
		t := p.queue[last]
		p.queue = p.queue[:last]
		p.mu.Unlock()

		if err := t.ctx.Err(); err != nil {
			p.finish(t, nil, err)
			continue
		}
		img, err := p.decode(t)
		p.finish(t, img, err)
	}
}

func (p *Pipeline) decode(t *task) (image.Image, error) {
	if p.disk != nil {
		if img, ok := p.disk.Load(t.locator, t.bucket); ok {
			debug.Log(debug.THUMB_ENTRY, "disk hit %s bucket=%d", t.locator, t.bucket)
			return img, nil
		}
	}
	img, err := p.decoder.Decode(t.ctx, t.locator, t.bucket)
	if err != nil {
		return nil, err
	}
	if p.disk != nil {
		p.disk.Store(t.locator, t.bucket, img)
	}
	return img, nil
}

// finish is the single transition point for decode completions. Exactly one
// Result is emitted per decode; stale completions (superseded generation,
// entry already gone) are discarded silently.
func (p *Pipeline) finish(t *task, img image.Image, err error) {
	var res *Result

	p.mu.Lock()
	e := p.entries[t.locator]
	switch {
	case e == nil || e.gen != t.gen || e.seq != t.seq || e.state != StatePending:
		// Invalidated or superseded while decoding. A successful decode
		// for a dead attempt is simply dropped.

	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		// Stopped prefetch: back to absent so a later request may retry.
		delete(p.entries, t.locator)

	case err != nil:
		e.state = StateFailed
		e.img = nil
		e.cancel = nil
		debug.Log(debug.THUMB, "decode failed %s: %v", t.locator, err)
		res = &Result{Locator: t.locator, Bucket: t.bucket, Err: err}

	default:
		e.state = StateReady
		e.img = img
		e.aspect = aspectOf(img)
		e.bucket = t.bucket
		e.cancel = nil
		e.elem = p.lru.PushFront(e)
		p.evictLocked()
		res = &Result{Locator: t.locator, Bucket: t.bucket, Img: img, Aspect: e.aspect}
	}
	p.mu.Unlock()

	if res != nil {
		select {
		case p.results <- *res:
		case <-p.done:
		}
	}
}

// evictLocked trims the LRU to capacity. Only ready entries are counted;
// pending work is never evicted.
func (p *Pipeline) evictLocked() {
	for p.lru.Len() > p.capacity {
		oldest := p.lru.Back()
		if oldest == nil {
			return
		}
		e := oldest.Value.(*entry)
		p.lru.Remove(oldest)
		delete(p.entries, e.locator)
		debug.Log(debug.THUMB_ENTRY, "evict %s", e.locator)
	}
}
