// Package theme applies resolved UI themes. The applicator keeps the id of
// the active theme and renders its light/dark variable sets as a style
// block; unknown or absent ids leave the previous theme in place.
package theme

import (
	"sort"
	"strings"
	"sync"

	"ambiance/internal/catalog"
	"ambiance/internal/logging"
)

// Applicator tracks the active theme against the live catalog.
type Applicator struct {
	mu      sync.Mutex
	catalog *catalog.Store
	current string
}

// NewApplicator builds an applicator with no active theme.
func NewApplicator(store *catalog.Store) *Applicator {
	return &Applicator{catalog: store}
}

// Apply activates the referenced theme and reports whether anything
// changed. A nil or unknown id is a no-op; the prior theme remains.
func (a *Applicator) Apply(id *string) bool {
	if id == nil {
		return false
	}
	snap := a.catalog.Snapshot()
	if !snap.ThemeKnown(*id) {
		logging.Theme("ignoring unknown theme %q", *id)
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == *id {
		return false
	}
	a.current = *id
	logging.Theme("theme applied: %s", *id)
	return true
}

// Active returns the current theme's id and entry. ok is false before the
// first successful Apply or if the catalog no longer knows the id.
func (a *Applicator) Active() (string, catalog.ThemeEntry, bool) {
	a.mu.Lock()
	id := a.current
	a.mu.Unlock()
	if id == "" {
		return "", catalog.ThemeEntry{}, false
	}
	entry, ok := a.catalog.Snapshot().Theme(id)
	return id, entry, ok
}

// StyleBlock renders the active theme's variables as a CSS-style block
// with a :root light set and a .dark override set. Returns "" when no
// theme is active.
func (a *Applicator) StyleBlock() string {
	_, entry, ok := a.Active()
	if !ok {
		return ""
	}
	var b strings.Builder
	writeVarSet(&b, ":root", entry.LightVars)
	b.WriteString("\n")
	writeVarSet(&b, ".dark", entry.DarkVars)
	return b.String()
}

func writeVarSet(b *strings.Builder, selector string, vars map[string]string) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString(selector)
	b.WriteString(" {\n")
	for _, k := range keys {
		b.WriteString("  ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(vars[k])
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
}
