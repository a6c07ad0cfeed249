package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestEmbeddedDefaultsLoad(t *testing.T) {
	store := NewStore()
	snap := store.Snapshot()

	if !snap.SoundEnabled("pirates") {
		t.Error("expected pirates in the default sound catalog")
	}
	if !snap.ThemeKnown("corsair") {
		t.Error("expected corsair in the default theme catalog")
	}
	if len(snap.EnabledSoundIDs()) == 0 {
		t.Fatal("no enabled sounds in embedded defaults")
	}
}

func TestSoundEnabledIsExactAndCaseSensitive(t *testing.T) {
	snap := NewSnapshot(map[string]SoundEntry{
		"pirates": {Title: "Pirates"},
		"gone":    {Title: "Gone", Disabled: true},
	}, map[string]ThemeEntry{"ember": {Label: "Ember"}})

	if !snap.SoundEnabled("pirates") {
		t.Error("exact id should match")
	}
	if snap.SoundEnabled("Pirates") {
		t.Error("matching must be case-sensitive")
	}
	if snap.SoundEnabled("pirate") {
		t.Error("prefix must not match")
	}
	if snap.SoundEnabled("gone") {
		t.Error("disabled entry must count as unknown")
	}
	if _, ok := snap.Sound("gone"); ok {
		t.Error("disabled entry must not be surfaced")
	}
}

func TestEnabledSoundIDsSortedAndFiltered(t *testing.T) {
	snap := NewSnapshot(map[string]SoundEntry{
		"b": {}, "a": {}, "c": {Disabled: true},
	}, map[string]ThemeEntry{"x": {}})

	got := snap.EnabledSoundIDs()
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestLoadFromFilesAndReload(t *testing.T) {
	dir := t.TempDir()
	soundsPath := filepath.Join(dir, "sounds.json")
	writeFile(t, soundsPath, `{"harbor": {"title": "Harbor", "tags": ["sea"], "url": "/sounds/harbor.mp3"}}`)

	store, err := Load(soundsPath, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := store.Snapshot()
	if !snap.SoundEnabled("harbor") {
		t.Error("file-backed sound missing")
	}
	if snap.SoundEnabled("pirates") {
		t.Error("file-backed catalog should replace embedded sounds")
	}
	// Themes fall back to embedded defaults.
	if !snap.ThemeKnown("parchment") {
		t.Error("embedded themes should remain when no theme path given")
	}

	// A rewritten file plus reload swaps the snapshot; the old one is intact.
	writeFile(t, soundsPath, `{"harbor": {"title": "Harbor", "tags": ["sea"], "url": "/sounds/harbor.mp3", "disabled": true}}`)
	if err := store.reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if store.Snapshot().SoundEnabled("harbor") {
		t.Error("disabled flag from rewritten file not applied")
	}
	if !snap.SoundEnabled("harbor") {
		t.Error("previously obtained snapshot must be immutable")
	}
}

func TestLoadRejectsMalformedCatalog(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "sounds.json")
	writeFile(t, bad, `{"harbor": `)

	if _, err := Load(bad, ""); err == nil {
		t.Fatal("expected error for malformed catalog")
	}
}

func TestProberDisablesUnreachableSounds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if r.URL.Path == "/sounds/alive.mp3" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	snap := NewSnapshot(map[string]SoundEntry{
		"alive": {Title: "Alive", PlayableRef: "/sounds/alive.mp3"},
		"dead":  {Title: "Dead", PlayableRef: "/sounds/dead.mp3"},
		"back":  {Title: "Back", PlayableRef: "/sounds/alive.mp3", Disabled: true},
	}, map[string]ThemeEntry{"x": {}})

	prober := NewProber(srv.URL)
	updated, failed, err := prober.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}

	if updated["alive"].Disabled {
		t.Error("reachable sound was disabled")
	}
	if !updated["dead"].Disabled {
		t.Error("unreachable sound was not disabled")
	}
	if updated["back"].Disabled {
		t.Error("recovered sound should be re-enabled")
	}
	if len(failed) != 1 || failed[0] != "dead" {
		t.Errorf("expected failed=[dead], got %v", failed)
	}
}

func TestWriteSoundsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sounds.json")

	in := map[string]SoundEntry{
		"harbor": {Title: "Harbor", Tags: []string{"sea"}, PlayableRef: "/sounds/harbor.mp3", Disabled: true},
	}
	if err := WriteSounds(path, in); err != nil {
		t.Fatalf("WriteSounds failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written catalog: %v", err)
	}
	out, err := ParseSounds(data)
	if err != nil {
		t.Fatalf("ParseSounds failed: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch: %+v vs %+v", in, out)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
