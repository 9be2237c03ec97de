// Package thumb implements the asynchronous thumbnail pipeline: a bounded
// in-memory cache with a per-key state machine, a de-duplicated decode queue
// served by a worker pool, size bucketing, and an optional persistent disk
// cache. Decoding never runs on the caller's goroutine; completions are
// delivered on a result channel the owner drains from its event loop.
package thumb

// Buckets snaps requested pixel sizes to a coarse grid so container-resize
// jitter does not multiply cache keys.
type Buckets struct {
	Granularity int     // bucket step in pixels
	Min         int     // smallest bucket
	Max         int     // largest bucket
	Tolerance   float64 // fraction of the requested bucket a cached bitmap may undershoot
}

// DefaultBuckets matches the tuning the grid ships with. The tolerance is a
// smoothness heuristic, not a correctness constant.
func DefaultBuckets() Buckets {
	return Buckets{Granularity: 64, Min: 64, Max: 1024, Tolerance: 0.9}
}

func (b Buckets) normalized() Buckets {
	if b.Granularity < 1 {
		b.Granularity = 1
	}
	if b.Min < b.Granularity {
		b.Min = b.Granularity
	}
	if b.Max < b.Min {
		b.Max = b.Min
	}
	if b.Tolerance <= 0 || b.Tolerance > 1 {
		b.Tolerance = 1
	}
	return b
}

// For snaps a pixel size to the nearest bucket, clamped to [Min, Max].
func (b Buckets) For(px int) int {
	b = b.normalized()
	if px < b.Min {
		return b.Min
	}
	if px > b.Max {
		return b.Max
	}
	snapped := ((px + b.Granularity/2) / b.Granularity) * b.Granularity
	if snapped < b.Min {
		snapped = b.Min
	}
	if snapped > b.Max {
		snapped = b.Max
	}
	return snapped
}

// Satisfies reports whether a bitmap decoded at bucket have is close enough
// to serve a request for bucket want without re-decoding.
func (b Buckets) Satisfies(have, want int) bool {
	b = b.normalized()
	return float64(have) >= b.Tolerance*float64(want)
}
