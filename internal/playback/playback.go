// Package playback implements the dual-buffer crossfade engine. Two audio
// elements alternate between an audible looping slot and an idle slot; a
// new track loads into the idle slot at volume zero and the two volumes
// ramp in opposite directions over a fixed window. At most one fade runs
// at a time.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ambiance/internal/logging"
)

// ErrPlaybackRejected reports that the environment refused to start audio
// (autoplay policy, missing codec). The fade that triggered it is aborted
// and the previous track keeps playing.
var ErrPlaybackRejected = errors.New("playback rejected")

// ErrClosed reports a Play call after Close.
var ErrClosed = errors.New("playback engine closed")

// Element is one addressable audio output. Play may block while the
// environment decides whether playback is allowed; it is always awaited
// before any volume ramp starts.
type Element interface {
	SetSource(ref string)
	SetLoop(loop bool)
	SetVolume(v float64)
	Play(ctx context.Context) error
	Pause()
	Ended() bool
	Close() error
}

// Config tunes the fade window.
type Config struct {
	FadeDuration time.Duration `yaml:"fade_duration" json:"fade_duration"`
	FadeSteps    int           `yaml:"fade_steps" json:"fade_steps"`
}

// DefaultConfig is a five second fade in twenty steps.
func DefaultConfig() Config {
	return Config{FadeDuration: 5 * time.Second, FadeSteps: 20}
}

// stopper is the cancellable half of a scheduled callback.
type stopper interface {
	Stop() bool
}

// Engine owns the two slots. All mutable state is guarded by mu; fade
// steps run on timer goroutines and take the same lock, so a step and a
// Play call can never interleave inside a slot.
type Engine struct {
	mu       sync.Mutex
	slots    [2]Element
	active   int
	current  string
	gen      uint64
	owners   [2]uint64 // generation that last targeted each slot
	fade     *fade
	cfg      Config
	closed   bool
	schedule func(d time.Duration, f func()) stopper
}

// fade is one in-flight volume ramp. canceled is flipped under the
// engine's lock; a fired timer that observes it does nothing.
type fade struct {
	in, out  Element
	step     int
	steps    int
	interval time.Duration
	timer    stopper
	canceled bool
}

// NewEngine builds an engine over two idle elements. Both start unused;
// the first Play fades in over silence.
func NewEngine(a, b Element, cfg Config) *Engine {
	if cfg.FadeDuration <= 0 || cfg.FadeSteps <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		slots: [2]Element{a, b},
		cfg:   cfg,
		schedule: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// Playing returns the reference of the track the engine currently
// considers audible, or "" before the first successful Play.
func (e *Engine) Playing() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Play loads ref into the idle slot and crossfades to it. An in-flight
// fade is cancelled first so only one ramp ever writes to the slots. The
// call returns once the incoming element has accepted playback; the ramp
// then proceeds in the background.
func (e *Engine) Play(ctx context.Context, ref string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.cancelFadeLocked()
	e.gen++
	gen := e.gen

	idle := 1 - e.active
	e.owners[idle] = gen
	in := e.slots[idle]
	in.SetLoop(true)
	in.SetVolume(0)
	in.SetSource(ref)
	e.mu.Unlock()

	// Awaited outside the lock: the environment may prompt or probe
	// codecs here, and a rejection must not wedge other callers.
	if err := in.Play(ctx); err != nil {
		logging.Playback("play %q rejected: %v", ref, err)
		return fmt.Errorf("%w: %v", ErrPlaybackRejected, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if gen != e.gen {
		// A newer Play superseded this one while we awaited the
		// element. If it re-targeted the same slot, its fade owns the
		// element now and pausing would silence the incoming track;
		// only pause when the slot still belongs to this call.
		if e.owners[idle] == gen {
			in.Pause()
		}
		return nil
	}

	f := &fade{
		in:       in,
		out:      e.slots[e.active],
		steps:    e.cfg.FadeSteps,
		interval: e.cfg.FadeDuration / time.Duration(e.cfg.FadeSteps),
	}
	e.fade = f
	e.current = ref
	f.timer = e.schedule(f.interval, func() { e.tick(f) })
	logging.PlaybackDebug("fade to %q started: %d steps of %s", ref, f.steps, f.interval)
	return nil
}

// tick advances one fade step. Runs on a timer goroutine.
func (e *Engine) tick(f *fade) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f.canceled || e.closed {
		return
	}
	f.step++
	if f.step < f.steps {
		v := float64(f.step) / float64(f.steps)
		f.in.SetVolume(v)
		if !f.out.Ended() {
			f.out.SetVolume(1 - v)
		}
		f.timer = e.schedule(f.interval, func() { e.tick(f) })
		return
	}

	// Final step: land exactly on full volume, park the outgoing slot
	// reset to full volume so it is ready to be the next fade-in target.
	f.in.SetVolume(1)
	if !f.out.Ended() {
		f.out.Pause()
	}
	f.out.SetVolume(1)
	e.active = 1 - e.active
	e.fade = nil
	logging.PlaybackDebug("fade complete, active slot %d", e.active)
}

// cancelFadeLocked stops the in-flight ramp, if any. Callers hold mu.
func (e *Engine) cancelFadeLocked() {
	if e.fade == nil {
		return
	}
	e.fade.canceled = true
	if e.fade.timer != nil {
		e.fade.timer.Stop()
	}
	e.fade = nil
}

// Close cancels any ramp and releases both elements. Subsequent Play
// calls fail with ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.cancelFadeLocked()
	var first error
	for _, el := range e.slots {
		if err := el.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
