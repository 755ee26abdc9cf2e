package hook

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// legacyMarkers are stop files left behind by older capture tools
var legacyMarkers = []string{
	"stop_hotkey_capture.tmp",
	"stop_firefox_capture.tmp",
	"stop_capture.tmp",
}

// CleanupStale removes stop markers from earlier runs. The marker for the
// bridge about to start (current) is removed too; it is recreated on Stop.
func CleanupStale(current string) int {
	removed := 0

	for _, name := range legacyMarkers {
		if removeIfExists(filepath.Join(os.TempDir(), name)) {
			removed++
		}
	}

	dir := filepath.Join(os.TempDir(), "clicker")
	if current != "" {
		dir = filepath.Dir(current)
		if removeIfExists(current) {
			removed++
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return removed
	}
	own := filepath.Base(DefaultStopFile())
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == own || !strings.HasPrefix(name, "stop_") || !strings.HasSuffix(name, ".tmp") {
			continue
		}
		if removeIfExists(filepath.Join(dir, name)) {
			removed++
		}
	}

	if removed > 0 {
		log.Printf("Hook Bridge: Removed %d stale stop marker(s)", removed)
	}
	return removed
}

func removeIfExists(path string) bool {
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Hook Bridge: Failed to remove %s: %v", path, err)
		}
		return false
	}
	return true
}
