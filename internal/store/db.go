// Package store persists small session state in SQLite: key/value settings
// and the aspect-ratio memory that lets the masonry settle instantly when a
// folder is revisited. One goroutine owns the connection; callers talk to it
// over request/response channels.
package store

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/justyntemme/mosaic/internal/debug"
)

type EventType int

const (
	FetchSettings EventType = iota
	SaveSetting
	FetchAspects
	SaveAspect
)

type Request struct {
	Op      EventType
	Key     string
	Value   string
	Locator string
	Ratio   float64
}

type Response struct {
	Op       EventType
	Settings map[string]string  // Key-value settings
	Aspects  map[string]float64 // locator -> width/height ratio
	Err      error
}

type DB struct {
	conn         *sql.DB
	RequestChan  chan Request
	ResponseChan chan Response
}

func NewDB() *DB {
	return &DB{
		RequestChan:  make(chan Request, 64),
		ResponseChan: make(chan Response, 10),
	}
}

// DefaultPath returns the database location under the user config dir.
func DefaultPath() string {
	configDir, _ := os.UserConfigDir()
	return filepath.Join(configDir, "mosaic", "mosaic.db")
}

// Open initializes the database connection and schema
func (d *DB) Open(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	// Performance Tuning
	// WAL mode allows simultaneous readers and writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}
	// Synchronous NORMAL is safe against app crashes, faster than FULL
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		return err
	}

	settingsQuery := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(settingsQuery); err != nil {
		return err
	}

	aspectsQuery := `
	CREATE TABLE IF NOT EXISTS aspects (
		locator TEXT PRIMARY KEY,
		ratio REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(aspectsQuery); err != nil {
		return err
	}

	d.conn = db
	return nil
}

func (d *DB) Start() {
	for req := range d.RequestChan {
		switch req.Op {
		case FetchSettings:
			d.handleFetchSettings()
		case SaveSetting:
			d.handleSaveSetting(req.Key, req.Value)
		case FetchAspects:
			d.handleFetchAspects()
		case SaveAspect:
			d.handleSaveAspect(req.Locator, req.Ratio)
		}
	}
}

func (d *DB) handleFetchSettings() {
	rows, err := d.conn.Query("SELECT key, value FROM settings")
	if err != nil {
		d.ResponseChan <- Response{Op: FetchSettings, Err: err}
		return
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err == nil {
			settings[key] = value
		}
	}

	d.ResponseChan <- Response{Op: FetchSettings, Settings: settings}
}

func (d *DB) handleSaveSetting(key, value string) {
	// Use INSERT OR REPLACE to upsert the setting
	_, err := d.conn.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		log.Printf("Store Error saving setting: %v", err)
	}
}

func (d *DB) handleFetchAspects() {
	rows, err := d.conn.Query("SELECT locator, ratio FROM aspects")
	if err != nil {
		d.ResponseChan <- Response{Op: FetchAspects, Err: err}
		return
	}
	defer rows.Close()

	aspects := make(map[string]float64)
	for rows.Next() {
		var locator string
		var ratio float64
		if err := rows.Scan(&locator, &ratio); err == nil && ratio > 0 {
			aspects[locator] = ratio
		}
	}

	debug.Log(debug.STORE, "fetched %d remembered aspect ratios", len(aspects))
	d.ResponseChan <- Response{Op: FetchAspects, Aspects: aspects}
}

// handleSaveAspect upserts one refined ratio. No response is sent; aspect
// writes are fire-and-forget from decode completions.
func (d *DB) handleSaveAspect(locator string, ratio float64) {
	if locator == "" || ratio <= 0 {
		return
	}
	_, err := d.conn.Exec(
		"INSERT OR REPLACE INTO aspects (locator, ratio) VALUES (?, ?)", locator, ratio)
	if err != nil {
		log.Printf("Store Error saving aspect: %v", err)
	}
}

func (d *DB) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
}
