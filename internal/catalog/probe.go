package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ambiance/internal/logging"
)

// Prober checks every sound's playable URL and produces a new snapshot with
// unreachable entries marked disabled. It is an offline maintenance job; the
// resolver only ever reads the snapshots it writes.
type Prober struct {
	BaseURL     string // prefix for relative playable refs
	Client      *http.Client
	Concurrency int
}

// NewProber builds a prober with sane defaults.
func NewProber(baseURL string) *Prober {
	return &Prober{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Client:      &http.Client{Timeout: 15 * time.Second},
		Concurrency: 8,
	}
}

func (p *Prober) resolveURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return p.BaseURL + "/" + strings.TrimLeft(ref, "/")
}

// Run HEADs every sound in the snapshot, including currently disabled ones
// so recovered assets come back. Returns the updated sound map and the ids
// that failed. Individual failures disable the entry, they never fail the
// probe; only a context cancellation aborts it.
func (p *Prober) Run(ctx context.Context, snap *Snapshot) (map[string]SoundEntry, []string, error) {
	ids := snap.allSoundIDs()
	results := make([]bool, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)
	for i, id := range ids {
		entry := snap.sounds[id]
		g.Go(func() error {
			ok, err := p.check(ctx, entry.PlayableRef)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logging.Catalog("Probe %s (%s): %v", id, entry.Title, err)
			}
			results[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	updated := make(map[string]SoundEntry, len(ids))
	var failed []string
	for i, id := range ids {
		entry := snap.sounds[id]
		entry.Disabled = !results[i]
		updated[id] = entry
		if entry.Disabled {
			failed = append(failed, id)
			logging.Catalog("Probe disabled %s (%s)", id, entry.Title)
		}
	}
	return updated, failed, nil
}

func (p *Prober) check(ctx context.Context, ref string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.resolveURL(ref), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return true, nil
}
