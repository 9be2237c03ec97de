package thumb

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"
)

// fakeDecoder counts decode invocations per locator and can block on a gate
// or fail configured locators.
type fakeDecoder struct {
	mu    sync.Mutex
	calls map[string]int
	gate  chan struct{} // when non-nil, Decode blocks until closed or ctx cancelled
	fail  map[string]bool
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{calls: make(map[string]int), fail: make(map[string]bool)}
}

func (d *fakeDecoder) Decode(ctx context.Context, locator string, targetPx int) (image.Image, error) {
	d.mu.Lock()
	d.calls[locator]++
	gate := d.gate
	shouldFail := d.fail[locator]
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if shouldFail {
		return nil, errors.New("corrupt source")
	}
	// 2:1 landscape so aspect feedback is observable.
	return image.NewRGBA(image.Rect(0, 0, targetPx, targetPx/2)), nil
}

func (d *fakeDecoder) callsFor(locator string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[locator]
}

func newTestPipeline(t *testing.T, dec Decoder, capacity int) *Pipeline {
	t.Helper()
	p := NewPipeline(Options{
		Capacity: capacity,
		Workers:  2,
		Decoder:  dec,
	})
	t.Cleanup(p.Close)
	return p
}

func waitResult(t *testing.T, p *Pipeline) Result {
	t.Helper()
	select {
	case r := <-p.Results():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a pipeline result")
		return Result{}
	}
}

func waitState(t *testing.T, p *Pipeline, locator string, want EntryState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.State(locator) == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state for %s never reached %d (is %d)", locator, want, p.State(locator))
}

// N requests for the same key while a decode is in flight must attach to it:
// exactly one decode invocation, one result, and every later request served
// from cache.
func TestRequestDeduplication(t *testing.T) {
	dec := newFakeDecoder()
	dec.gate = make(chan struct{})
	p := newTestPipeline(t, dec, 16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, final := p.Request("/pics/a.jpg", 128)
			if final || img != nil {
				t.Errorf("expected pending attach, got img=%v final=%v", img, final)
			}
		}()
	}
	wg.Wait()
	close(dec.gate)

	res := waitResult(t, p)
	if res.Err != nil || res.Locator != "/pics/a.jpg" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Aspect != 2 {
		t.Errorf("expected aspect 2, got %v", res.Aspect)
	}

	if got := dec.callsFor("/pics/a.jpg"); got != 1 {
		t.Errorf("expected exactly 1 decode, got %d", got)
	}

	img, final := p.Request("/pics/a.jpg", 128)
	if img == nil || !final {
		t.Error("cached entry not served synchronously")
	}
	if got := dec.callsFor("/pics/a.jpg"); got != 1 {
		t.Errorf("repeat request re-decoded: %d calls", got)
	}

	// One completion per decode: nothing else should be queued.
	select {
	case extra := <-p.Results():
		t.Errorf("unexpected second result %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFailedEntryIsTerminal(t *testing.T) {
	dec := newFakeDecoder()
	dec.fail["/pics/broken.jpg"] = true
	p := newTestPipeline(t, dec, 16)

	if img, final := p.Request("/pics/broken.jpg", 128); img != nil || final {
		t.Fatalf("first request should be pending, got img=%v final=%v", img, final)
	}
	res := waitResult(t, p)
	if res.Err == nil {
		t.Fatal("expected a decode error")
	}
	waitState(t, p, "/pics/broken.jpg", StateFailed)

	// Repeat requests return the fallback synchronously without re-decoding.
	img, final := p.Request("/pics/broken.jpg", 128)
	if img == nil || !final {
		t.Errorf("failed key: expected synchronous fallback, got img=%v final=%v", img, final)
	}
	if got := dec.callsFor("/pics/broken.jpg"); got != 1 {
		t.Errorf("failed key was retried: %d decode calls", got)
	}
}

func TestEvictionBoundedCapacity(t *testing.T) {
	dec := newFakeDecoder()
	p := newTestPipeline(t, dec, 2)

	for i := 0; i < 3; i++ {
		p.Request(fmt.Sprintf("/pics/%d.jpg", i), 128)
		waitResult(t, p)
	}

	if got := p.Len(); got != 2 {
		t.Errorf("expected 2 resident bitmaps, got %d", got)
	}
	// All three decoded; at least one of the earlier entries was evicted
	// back to absent.
	absent := 0
	for i := 0; i < 3; i++ {
		if p.State(fmt.Sprintf("/pics/%d.jpg", i)) == StateAbsent {
			absent++
		}
	}
	if absent != 1 {
		t.Errorf("expected exactly 1 evicted entry, got %d", absent)
	}
}

func TestInvalidateClearsAndIsIdempotent(t *testing.T) {
	dec := newFakeDecoder()
	p := newTestPipeline(t, dec, 16)

	// Invalidating an empty pipeline is a no-op.
	p.Invalidate()
	p.Invalidate()
	if p.Len() != 0 {
		t.Fatalf("empty invalidate changed cache size: %d", p.Len())
	}

	p.Request("/pics/a.jpg", 128)
	waitResult(t, p)
	waitState(t, p, "/pics/a.jpg", StateReady)

	p.Invalidate()
	if p.State("/pics/a.jpg") != StateAbsent || p.Len() != 0 {
		t.Error("invalidate left entries behind")
	}
	p.Invalidate() // second call, same effect

	// A fresh request decodes again.
	p.Request("/pics/a.jpg", 128)
	waitResult(t, p)
	if got := dec.callsFor("/pics/a.jpg"); got != 2 {
		t.Errorf("expected 2 decodes across invalidation, got %d", got)
	}
}

func TestStopPrefetchCancelsPending(t *testing.T) {
	dec := newFakeDecoder()
	dec.gate = make(chan struct{})
	p := newTestPipeline(t, dec, 16)

	p.StartPrefetch([]string{"/pics/slow.jpg"}, 128)
	waitState(t, p, "/pics/slow.jpg", StatePending)

	p.StopPrefetch([]string{"/pics/slow.jpg"})

	// The worker observes the cancelled context and the entry returns to
	// absent without emitting a result.
	waitState(t, p, "/pics/slow.jpg", StateAbsent)
	select {
	case res := <-p.Results():
		t.Errorf("cancelled decode emitted a result: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}

	// The key is requestable again afterwards.
	close(dec.gate)
	p.Request("/pics/slow.jpg", 128)
	res := waitResult(t, p)
	if res.Err != nil {
		t.Errorf("revived request failed: %v", res.Err)
	}
}

func TestStopPrefetchIsAdvisory(t *testing.T) {
	dec := newFakeDecoder()
	p := newTestPipeline(t, dec, 16)

	p.Request("/pics/done.jpg", 128)
	waitResult(t, p)
	waitState(t, p, "/pics/done.jpg", StateReady)

	// Stopping a completed key never evicts its bitmap.
	p.StopPrefetch([]string{"/pics/done.jpg"})
	if p.State("/pics/done.jpg") != StateReady {
		t.Error("stop evicted a ready entry")
	}
	if img, final := p.Request("/pics/done.jpg", 128); img == nil || !final {
		t.Error("ready entry lost after advisory stop")
	}
}

func TestRequestAfterStopRevivesDecode(t *testing.T) {
	dec := newFakeDecoder()
	dec.gate = make(chan struct{})
	p := newTestPipeline(t, dec, 16)

	p.Request("/pics/x.jpg", 128)
	waitState(t, p, "/pics/x.jpg", StatePending)
	p.StopPrefetch([]string{"/pics/x.jpg"})

	// A request arriving before the cancelled decode is reaped must
	// restart the work rather than attach to a dead attempt.
	p.Request("/pics/x.jpg", 128)
	close(dec.gate)

	res := waitResult(t, p)
	if res.Err != nil || res.Locator != "/pics/x.jpg" {
		t.Fatalf("unexpected result %+v", res)
	}
	waitState(t, p, "/pics/x.jpg", StateReady)
}

func TestToleranceAvoidsNeedlessRedecode(t *testing.T) {
	dec := newFakeDecoder()
	p := newTestPipeline(t, dec, 16)

	p.Request("/pics/a.jpg", 512)
	waitResult(t, p)

	// 448 is within tolerance of the resident 512 bitmap: no re-decode.
	if img, final := p.Request("/pics/a.jpg", 448); img == nil || !final {
		t.Error("within-tolerance request not served from cache")
	}
	if got := dec.callsFor("/pics/a.jpg"); got != 1 {
		t.Errorf("within-tolerance request re-decoded: %d calls", got)
	}

	// 576 exceeds tolerance: the entry upgrades, handing back the stale
	// bitmap while the new decode runs.
	img, final := p.Request("/pics/a.jpg", 576)
	if img == nil {
		t.Error("stale bitmap not handed back during upgrade")
	}
	if final {
		t.Error("upgrade request reported final")
	}
	res := waitResult(t, p)
	if res.Bucket != 576 {
		t.Errorf("expected upgraded bucket 576, got %d", res.Bucket)
	}
	if got := dec.callsFor("/pics/a.jpg"); got != 2 {
		t.Errorf("expected 2 decodes after upgrade, got %d", got)
	}
}

func TestRetargetClearsMismatched(t *testing.T) {
	dec := newFakeDecoder()
	dec.fail["/pics/broken.jpg"] = true
	p := newTestPipeline(t, dec, 16)

	p.Request("/pics/small.jpg", 128)
	waitResult(t, p)
	p.Request("/pics/broken.jpg", 128)
	waitResult(t, p)

	p.Retarget(512)

	// The 128 bitmap cannot satisfy 512 and is dropped; the failed entry
	// becomes eligible for a fresh attempt.
	if p.State("/pics/small.jpg") != StateAbsent {
		t.Error("undersized entry survived retarget")
	}
	if p.State("/pics/broken.jpg") != StateAbsent {
		t.Error("failed entry survived retarget")
	}
}
