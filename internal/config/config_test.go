package config

import "testing"

func TestNormalizeClampsMalformedValues(t *testing.T) {
	cfg := Config{
		Grid: GridConfig{
			IdealColumnWidth: -5,
			ColumnSpacing:    -1,
			LabelHeight:      -10,
			TileHeight:       0,
		},
		Thumbs: ThumbConfig{
			QualityMultiplier: -2,
			BucketGranularity: 0,
			MinPixel:          0,
			MaxPixel:          -100,
			SatisfyTolerance:  3,
			CacheCapacity:     0,
			Workers:           0,
		},
		Preheat: PreheatConfig{MarginFactor: -1, HysteresisFraction: -1},
	}
	cfg.normalize()

	if cfg.Grid.IdealColumnWidth < 40 {
		t.Errorf("ideal column width not clamped: %d", cfg.Grid.IdealColumnWidth)
	}
	if cfg.Grid.ColumnSpacing != 0 || cfg.Grid.LabelHeight != 0 {
		t.Error("negative spacing/label height not clamped to zero")
	}
	if cfg.Thumbs.MaxPixel < cfg.Thumbs.MinPixel {
		t.Errorf("max pixel %d below min %d", cfg.Thumbs.MaxPixel, cfg.Thumbs.MinPixel)
	}
	if cfg.Thumbs.SatisfyTolerance <= 0 || cfg.Thumbs.SatisfyTolerance > 1 {
		t.Errorf("tolerance not clamped: %v", cfg.Thumbs.SatisfyTolerance)
	}
	if cfg.Thumbs.Workers < 1 || cfg.Thumbs.CacheCapacity < 16 {
		t.Error("pipeline sizes not clamped")
	}
	if cfg.Preheat.MarginFactor < 0 || cfg.Preheat.HysteresisFraction < 0 {
		t.Error("preheat fractions not clamped")
	}
}

func TestDefaultConfigIsNormalized(t *testing.T) {
	cfg := *DefaultConfig()
	before := cfg
	cfg.normalize()
	if cfg != before {
		t.Errorf("defaults changed under normalize: %+v vs %+v", before, cfg)
	}
}

func TestManagerGetWithoutLoad(t *testing.T) {
	m := NewManager()
	cfg := m.Get()
	if cfg.Grid.IdealColumnWidth == 0 {
		t.Error("manager without Load returned zero config")
	}
}
