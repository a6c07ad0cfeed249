package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"ambiance/internal/logging"
)

//go:embed defaults/sounds.json
var defaultSounds []byte

//go:embed defaults/themes.json
var defaultThemes []byte

// Store publishes the current catalog snapshot. Reads are lock-free; the
// only writers are Load (startup) and the file watcher, both of which swap
// in a complete new snapshot.
type Store struct {
	snap       atomic.Pointer[Snapshot]
	soundsPath string
	themesPath string
}

// NewStore builds a store from the embedded default catalogs.
func NewStore() *Store {
	sounds, err := ParseSounds(defaultSounds)
	if err != nil {
		// The embedded catalogs are compiled in; if they are broken the
		// binary is broken.
		panic(fmt.Sprintf("embedded sound catalog invalid: %v", err))
	}
	themes, err := ParseThemes(defaultThemes)
	if err != nil {
		panic(fmt.Sprintf("embedded theme catalog invalid: %v", err))
	}
	s := &Store{}
	s.snap.Store(NewSnapshot(sounds, themes))
	return s
}

// Load builds a store from catalog files on disk. Empty paths fall back to
// the embedded defaults for that catalog.
func Load(soundsPath, themesPath string) (*Store, error) {
	s := NewStore()
	s.soundsPath = soundsPath
	s.themesPath = themesPath
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	cur := s.snap.Load()
	sounds := cur.sounds
	themes := cur.themes

	if s.soundsPath != "" {
		data, err := os.ReadFile(s.soundsPath)
		if err != nil {
			return fmt.Errorf("failed to read sound catalog: %w", err)
		}
		sounds, err = ParseSounds(data)
		if err != nil {
			return err
		}
	}
	if s.themesPath != "" {
		data, err := os.ReadFile(s.themesPath)
		if err != nil {
			return fmt.Errorf("failed to read theme catalog: %w", err)
		}
		themes, err = ParseThemes(data)
		if err != nil {
			return err
		}
	}

	s.snap.Store(NewSnapshot(sounds, themes))
	logging.Catalog("Catalog snapshot loaded: %d sounds (%d enabled), %d themes",
		len(sounds), len(s.snap.Load().EnabledSoundIDs()), len(themes))
	return nil
}

// Snapshot returns the current immutable snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Swap publishes a new snapshot, replacing the current one.
func (s *Store) Swap(snap *Snapshot) {
	s.snap.Store(snap)
}

// Watch reloads the snapshot whenever a backing catalog file changes, so a
// probe rewrite takes effect without a process restart. Blocks until ctx is
// done. A store built purely from embedded defaults has nothing to watch.
func (s *Store) Watch(ctx context.Context) error {
	if s.soundsPath == "" && s.themesPath == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the parent directories: editors and the probe replace files by
	// rename, which drops a watch on the file itself.
	dirs := map[string]bool{}
	for _, p := range []string{s.soundsPath, s.themesPath} {
		if p == "" {
			continue
		}
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Name != s.soundsPath && event.Name != s.themesPath {
				continue
			}
			logging.Catalog("Catalog file changed: %s", event.Name)
			if err := s.reload(); err != nil {
				// Keep serving the previous snapshot.
				logging.Get(logging.CategoryCatalog).Error("Catalog reload failed: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryCatalog).Error("Catalog watcher error: %v", err)
		}
	}
}
