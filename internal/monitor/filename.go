package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	fileExtension    = ".mid"
	manualPrefix     = "manual_save_"
	timestampLayout  = "20060102150405"
	maxNameCollision = 1000
)

// Filename returns the default file name for a recording saved at t: a
// fixed-width sortable timestamp plus the .mid extension, with a
// distinguishing prefix for manual saves.
func Filename(manual bool, t time.Time) string {
	name := t.Format(timestampLayout) + fileExtension
	if manual {
		name = manualPrefix + name
	}
	return name
}

// NextAvailablePath joins dir and name, appending a numeric disambiguator
// when the target already exists rather than overwriting it.
func NextAvailablePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	for i := 1; i < maxNameCollision; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
	// Practically unreachable; fall back to the colliding name.
	return path
}
