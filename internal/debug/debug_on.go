//go:build debug

// Package debug provides a centralized, categorized debug logging system.
// Build with -tags debug to enable logging.
package debug

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	// Core categories
	APP     Category = "APP"     // Application orchestration, navigation, state
	FS      Category = "FS"      // Directory fetch and library scanning
	GRID    Category = "GRID"    // Masonry layout computation
	THUMB   Category = "THUMB"   // Thumbnail pipeline, cache transitions
	PREHEAT Category = "PREHEAT" // Viewport preheat window diffing
	STORE   Category = "STORE"   // Database operations, settings, aspect memory
	NAV     Category = "NAV"     // Selection and directional navigation

	// Detailed subcategories (very verbose, off by default)
	GRID_PLACE  Category = "GRID_PLACE"  // Per-item column placement
	THUMB_ENTRY Category = "THUMB_ENTRY" // Per-key cache state transitions
)

var (
	// enabledCategories controls which categories are active
	enabledCategories = map[Category]bool{
		APP:     true,
		FS:      true,
		GRID:    true,
		THUMB:   true,
		PREHEAT: true,
		STORE:   true,
		NAV:     true,

		GRID_PLACE:  false,
		THUMB_ENTRY: false,
	}
	categoryMu sync.RWMutex

	logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
)

func init() {
	// Category overrides: MOSAIC_DEBUG=APP,THUMB or MOSAIC_DEBUG=all / none
	if env := os.Getenv("MOSAIC_DEBUG"); env != "" {
		categoryMu.Lock()
		defer categoryMu.Unlock()

		env = strings.ToUpper(env)
		switch env {
		case "ALL":
			for cat := range enabledCategories {
				enabledCategories[cat] = true
			}
		case "NONE":
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
		default:
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
			for _, cat := range strings.Split(env, ",") {
				enabledCategories[Category(strings.TrimSpace(cat))] = true
			}
		}
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	categoryMu.RLock()
	enabled := enabledCategories[cat]
	categoryMu.RUnlock()

	if !enabled {
		return
	}

	msg := fmt.Sprintf(format, args...)
	logger.Printf("[%s] %s", cat, msg)
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}

// EnableAll enables all debug categories including verbose ones
func EnableAll() {
	categoryMu.Lock()
	for cat := range enabledCategories {
		enabledCategories[cat] = true
	}
	categoryMu.Unlock()
}
