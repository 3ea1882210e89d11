package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// fsChangeMsg is sent when a worker signal file or feed file changes.
type fsChangeMsg struct{}

// watchSignalDirs watches every directory the reconciler and updates feed
// read from: the state dir itself plus the lock and orchestrator subdirs
// (fsnotify watches are not recursive). Returns nil if nothing can be
// watched; the dashboard then runs on the tick alone.
func watchSignalDirs(paths dashPaths) tea.Cmd {
	watcher := initWatcher(signalDirs(paths))
	if watcher == nil {
		return nil
	}
	return runWatcher(watcher)
}

// signalDirs lists the directories worth watching, deduplicated. The lock
// and orchestrator dirs usually nest under the state dir but the config can
// point them anywhere.
func signalDirs(paths dashPaths) []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, dir := range []string{paths.StateDir, paths.LockDir, paths.OrchDir} {
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}

// initWatcher creates a watcher over every listed directory that exists.
// Returns nil when none could be added.
func initWatcher(dirs []string) *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("fsnotify: failed to create watcher: %v (falling back to polling)", err)
		return nil
	}

	added := 0
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			log.Printf("fsnotify: failed to watch %s: %v", dir, err)
			continue
		}
		added++
	}
	if added == 0 {
		_ = watcher.Close()
		return nil
	}
	return watcher
}

// runWatcher returns a tea.Cmd that monitors file system events and returns
// fsChangeMsg when a relevant file changes (with debouncing to avoid
// thundering herd).
func runWatcher(watcher *fsnotify.Watcher) tea.Cmd {
	return func() tea.Msg {
		debounceTimer := newDebounceTimer()
		defer debounceTimer.Stop()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if isSignalPath(event.Name) {
					resetDebounceTimer(debounceTimer)
				}

			case <-debounceTimer.C:
				return fsChangeMsg{}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				log.Printf("fsnotify: watcher error: %v", err)
				return nil
			}
		}
	}
}

// isSignalPath reports whether a change to the named file can affect the
// status snapshot: liveness and lock files, the audit database, or a
// markdown feed. Hidden files and editor droppings are noise.
func isSignalPath(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	switch filepath.Ext(base) {
	case ".tmp", ".swp":
		return false
	case ".pid", ".lock", ".db", ".db-wal", ".md":
		return true
	}
	// Extension-less names are usually new subdirectories (the lock dir
	// appearing after the first worker launch).
	return filepath.Ext(base) == ""
}

// newDebounceTimer creates a new timer for debouncing file system events.
func newDebounceTimer() *time.Timer {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	return timer
}

// resetDebounceTimer resets the debounce timer to prevent rapid-fire events.
func resetDebounceTimer(timer *time.Timer) {
	const debounceDuration = 100 * time.Millisecond
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(debounceDuration)
}
