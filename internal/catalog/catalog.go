// Package catalog holds the fixed sets of selectable ambient sounds and UI
// themes. A Snapshot is immutable once built; the resolver and clients only
// ever read snapshots. The liveness probe (see probe.go) produces new
// snapshot files offline, it never mutates one at request time.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// SoundEntry describes one ambient track.
type SoundEntry struct {
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	PlayableRef string   `json:"url"`
	Disabled    bool     `json:"disabled,omitempty"`
}

// ThemeEntry describes one UI color theme as light/dark variable sets.
type ThemeEntry struct {
	Label       string            `json:"label"`
	Description string            `json:"description"`
	LightVars   map[string]string `json:"light"`
	DarkVars    map[string]string `json:"dark"`
}

// Snapshot is one immutable view of both catalogs. Build it once, share it
// freely; request-time code must never write to it.
type Snapshot struct {
	sounds map[string]SoundEntry
	themes map[string]ThemeEntry
}

// NewSnapshot builds a snapshot from raw catalog maps. The maps are copied.
func NewSnapshot(sounds map[string]SoundEntry, themes map[string]ThemeEntry) *Snapshot {
	s := &Snapshot{
		sounds: make(map[string]SoundEntry, len(sounds)),
		themes: make(map[string]ThemeEntry, len(themes)),
	}
	for id, e := range sounds {
		s.sounds[id] = e
	}
	for id, e := range themes {
		s.themes[id] = e
	}
	return s
}

// SoundEnabled reports whether id names a known, enabled sound. Matching is
// exact and case-sensitive; disabled entries count as unknown.
func (s *Snapshot) SoundEnabled(id string) bool {
	e, ok := s.sounds[id]
	return ok && !e.Disabled
}

// Sound returns the entry for id. Disabled entries are not surfaced.
func (s *Snapshot) Sound(id string) (SoundEntry, bool) {
	e, ok := s.sounds[id]
	if !ok || e.Disabled {
		return SoundEntry{}, false
	}
	return e, true
}

// ThemeKnown reports whether id names a known theme.
func (s *Snapshot) ThemeKnown(id string) bool {
	_, ok := s.themes[id]
	return ok
}

// Theme returns the entry for id.
func (s *Snapshot) Theme(id string) (ThemeEntry, bool) {
	e, ok := s.themes[id]
	return e, ok
}

// EnabledSoundIDs returns the ids of all enabled sounds, sorted.
func (s *Snapshot) EnabledSoundIDs() []string {
	ids := make([]string, 0, len(s.sounds))
	for id, e := range s.sounds {
		if !e.Disabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ThemeIDs returns all theme ids, sorted.
func (s *Snapshot) ThemeIDs() []string {
	ids := make([]string, 0, len(s.themes))
	for id := range s.themes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// allSoundIDs includes disabled entries; the probe re-checks everything.
func (s *Snapshot) allSoundIDs() []string {
	ids := make([]string, 0, len(s.sounds))
	for id := range s.sounds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SoundLine formats one sound for the resolver's system instruction:
// "- [soundId] soundName (soundTags)".
func SoundLine(id string, e SoundEntry) string {
	return fmt.Sprintf("- [%s] %s (%s)", id, e.Title, strings.Join(e.Tags, ", "))
}

// ThemeLine formats one theme for the resolver's system instruction:
// "- [themeId] themeName (themeDescription)".
func ThemeLine(id string, e ThemeEntry) string {
	return fmt.Sprintf("- [%s] %s (%s)", id, e.Label, e.Description)
}

// ParseSounds decodes a sound catalog file: a JSON object keyed by sound id.
func ParseSounds(data []byte) (map[string]SoundEntry, error) {
	var sounds map[string]SoundEntry
	if err := json.Unmarshal(data, &sounds); err != nil {
		return nil, fmt.Errorf("failed to parse sound catalog: %w", err)
	}
	if len(sounds) == 0 {
		return nil, fmt.Errorf("sound catalog is empty")
	}
	return sounds, nil
}

// ParseThemes decodes a theme catalog file: a JSON object keyed by theme id.
func ParseThemes(data []byte) (map[string]ThemeEntry, error) {
	var themes map[string]ThemeEntry
	if err := json.Unmarshal(data, &themes); err != nil {
		return nil, fmt.Errorf("failed to parse theme catalog: %w", err)
	}
	if len(themes) == 0 {
		return nil, fmt.Errorf("theme catalog is empty")
	}
	return themes, nil
}

// WriteSounds serializes a sound catalog the way the probe rewrites it.
func WriteSounds(path string, sounds map[string]SoundEntry) error {
	data, err := json.MarshalIndent(sounds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize sound catalog: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write sound catalog: %w", err)
	}
	return os.Rename(tmp, path)
}
