// Package config loads and persists user-tunable settings for the grid,
// thumbnail pipeline and preheat controller from config.json.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Grid     GridConfig     `json:"grid"`
	Thumbs   ThumbConfig    `json:"thumbnails"`
	Preheat  PreheatConfig  `json:"preheat"`
	Behavior BehaviorConfig `json:"behavior"`
}

// GridConfig holds masonry geometry settings
type GridConfig struct {
	IdealColumnWidth int `json:"idealColumnWidth"` // target column width in px
	ColumnSpacing    int `json:"columnSpacing"`
	TopInset         int `json:"topInset"`
	BottomInset      int `json:"bottomInset"`
	SideInset        int `json:"sideInset"`
	LabelHeight      int `json:"labelHeight"` // 0 disables filename labels
	TileHeight       int `json:"tileHeight"`  // fixed height for folder tiles
}

// ThumbConfig holds thumbnail pipeline settings
type ThumbConfig struct {
	QualityMultiplier float64 `json:"qualityMultiplier"` // scales the target pixel size
	BucketGranularity int     `json:"bucketGranularity"` // cache key size step in px
	MinPixel          int     `json:"minPixel"`
	MaxPixel          int     `json:"maxPixel"`
	SatisfyTolerance  float64 `json:"satisfyTolerance"` // fraction of target a cached bitmap may undershoot
	CacheCapacity     int     `json:"cacheCapacity"`    // max bitmaps resident in memory
	Workers           int     `json:"workers"`
	DiskCache         bool    `json:"diskCache"`
}

// PreheatConfig holds viewport prefetch settings
type PreheatConfig struct {
	MarginFactor       float64 `json:"marginFactor"`       // preheat margin as a fraction of viewport height
	HysteresisFraction float64 `json:"hysteresisFraction"` // min scroll movement before re-diffing
}

// BehaviorConfig holds behavior settings
type BehaviorConfig struct {
	ShowDotfiles    bool `json:"showDotfiles"`
	RestoreLastPath bool `json:"restoreLastPath"`
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{config: DefaultConfig()}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Grid: GridConfig{
			IdealColumnWidth: 180,
			ColumnSpacing:    10,
			TopInset:         12,
			BottomInset:      12,
			SideInset:        12,
			LabelHeight:      22,
			TileHeight:       96,
		},
		Thumbs: ThumbConfig{
			QualityMultiplier: 1.0,
			BucketGranularity: 64,
			MinPixel:          64,
			MaxPixel:          1024,
			SatisfyTolerance:  0.9,
			CacheCapacity:     512,
			Workers:           4,
			DiskCache:         true,
		},
		Preheat: PreheatConfig{
			MarginFactor:       0.5,
			HysteresisFraction: 1.0 / 3.0,
		},
		Behavior: BehaviorConfig{
			ShowDotfiles:    false,
			RestoreLastPath: true,
		},
	}
}

// normalize clamps malformed values back to usable ranges so a hand-edited
// config degrades instead of breaking the layout.
func (c *Config) normalize() {
	if c.Grid.IdealColumnWidth < 40 {
		c.Grid.IdealColumnWidth = 40
	}
	if c.Grid.ColumnSpacing < 0 {
		c.Grid.ColumnSpacing = 0
	}
	if c.Grid.LabelHeight < 0 {
		c.Grid.LabelHeight = 0
	}
	if c.Grid.TileHeight < 16 {
		c.Grid.TileHeight = 16
	}
	if c.Thumbs.QualityMultiplier <= 0 {
		c.Thumbs.QualityMultiplier = 1.0
	}
	if c.Thumbs.BucketGranularity < 1 {
		c.Thumbs.BucketGranularity = 64
	}
	if c.Thumbs.MinPixel < 16 {
		c.Thumbs.MinPixel = 16
	}
	if c.Thumbs.MaxPixel < c.Thumbs.MinPixel {
		c.Thumbs.MaxPixel = c.Thumbs.MinPixel
	}
	if c.Thumbs.SatisfyTolerance <= 0 || c.Thumbs.SatisfyTolerance > 1 {
		c.Thumbs.SatisfyTolerance = 0.9
	}
	if c.Thumbs.CacheCapacity < 16 {
		c.Thumbs.CacheCapacity = 16
	}
	if c.Thumbs.Workers < 1 {
		c.Thumbs.Workers = 1
	}
	if c.Preheat.MarginFactor < 0 {
		c.Preheat.MarginFactor = 0
	}
	if c.Preheat.HysteresisFraction < 0 {
		c.Preheat.HysteresisFraction = 0
	}
}

// ConfigPath returns the config file path: ~/.config/mosaic/config.json
// This is consistent across all platforms (Windows, macOS, Linux)
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mosaic", "config.json")
}

// Load reads the configuration from the config file
// If the file doesn't exist, creates it with defaults
// If parsing fails, stores the error and returns defaults
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.path = ConfigPath()
	m.parseErr = nil

	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		log.Printf("Config: failed to create directory %s: %v", configDir, err)
		return err
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		log.Printf("Config: creating default config at %s", m.path)
		m.config = DefaultConfig()
		if saveErr := m.saveUnlocked(); saveErr != nil {
			log.Printf("Config: failed to save default config: %v", saveErr)
			return saveErr
		}
		return nil
	}
	if err != nil {
		log.Printf("Config: failed to read %s: %v", m.path, err)
		return err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		// Keep the error for display, fall back to defaults.
		log.Printf("Config: JSON parse error: %v", err)
		m.parseErr = err
		m.config = DefaultConfig()
		return nil
	}

	cfg.normalize()
	m.config = &cfg
	return nil
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// SetShowDotfiles updates the show dotfiles setting
func (m *Manager) SetShowDotfiles(show bool) {
	m.mu.Lock()
	m.config.Behavior.ShowDotfiles = show
	m.mu.Unlock()
	m.Save()
}

// SetQualityMultiplier updates the thumbnail quality multiplier
func (m *Manager) SetQualityMultiplier(q float64) {
	m.mu.Lock()
	m.config.Thumbs.QualityMultiplier = q
	m.config.normalize()
	m.mu.Unlock()
	m.Save()
}

// GenerateConfig backs up existing config and creates a fresh default config
// Returns the backup path if a backup was created, or empty string if no existing config
func GenerateConfig() (backupPath string, err error) {
	configPath := ConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		timestamp := time.Now().Format("20060102-150405")
		backupPath = filepath.Join(filepath.Dir(configPath), "config.backup."+timestamp+".json")

		data, err := os.ReadFile(configPath)
		if err != nil {
			return "", fmt.Errorf("failed to read existing config: %w", err)
		}
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return backupPath, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return backupPath, fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}

	return backupPath, nil
}
