// Package resolver turns a conversation ledger into an ambiance decision:
// which sound to play and which UI theme to apply. One call, one upstream
// generation, one advanced ledger. The resolver holds no per-conversation
// state; clients carry the ledger between calls.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ambiance/internal/catalog"
	"ambiance/internal/ledger"
	"ambiance/internal/llm"
	"ambiance/internal/logging"
)

// Strategy selects how the model is constrained to a machine-readable
// decision.
type Strategy string

const (
	// StrategyStructured constrains the reply to a JSON object via a
	// response schema. The only strategy that can correct an audio turn
	// into its transcript.
	StrategyStructured Strategy = "structured"

	// StrategyTools forces the model to invoke the play_sound and
	// change_theme functions instead of producing text.
	StrategyTools Strategy = "tools"
)

const (
	toolPlaySound   = "play_sound"
	toolChangeTheme = "change_theme"

	fieldSound      = "soundId"
	fieldTheme      = "themeId"
	fieldTranscript = "transcript"
)

// Outcome is one resolution result. A nil SoundID or ThemeID means the
// model produced no usable pick for that axis; the ledger still advances.
type Outcome struct {
	SoundID *string
	ThemeID *string
	Ledger  ledger.Ledger
}

// UpstreamError wraps a provider failure. The caller's ledger is untouched
// when this is returned.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream generation failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Resolver resolves conversational intent against the live catalog.
type Resolver struct {
	catalog  *catalog.Store
	model    llm.Client
	strategy Strategy
}

// New builds a resolver. An unrecognized strategy falls back to
// StrategyStructured.
func New(store *catalog.Store, model llm.Client, strategy Strategy) *Resolver {
	if strategy != StrategyTools {
		strategy = StrategyStructured
	}
	return &Resolver{catalog: store, model: model, strategy: strategy}
}

// Resolve validates the history, asks the model for a decision on the last
// user message and returns the picked ids plus the advanced ledger. The
// catalog is read once, up front; a catalog swap mid-call cannot produce a
// mixed view.
func (r *Resolver) Resolve(ctx context.Context, history ledger.Ledger) (*Outcome, error) {
	if err := history.Validate(); err != nil {
		return nil, err
	}
	snap := r.catalog.Snapshot()
	system := BuildSystemInstruction(snap)

	logging.ResolverDebug("resolve: %d turns, strategy=%s", len(history), r.strategy)

	if r.strategy == StrategyTools {
		return r.resolveWithTools(ctx, snap, system, history)
	}
	return r.resolveStructured(ctx, snap, system, history)
}

// structuredDecision is the reply shape requested from the model under
// StrategyStructured. The schema enums keep the ids honest in the common
// case; validate() catches the rest.
type structuredDecision struct {
	SoundID    string `json:"soundId"`
	ThemeID    string `json:"themeId"`
	Transcript string `json:"transcript,omitempty"`
}

func (r *Resolver) resolveStructured(ctx context.Context, snap *catalog.Snapshot, system string, history ledger.Ledger) (*Outcome, error) {
	lastHasAudio := history.Last().HasAudio()

	schema := &llm.Schema{
		Properties: map[string]llm.Property{
			fieldSound: {
				Type:        "string",
				Description: "The id of the sound that best matches the last user message.",
				Enum:        snap.EnabledSoundIDs(),
			},
			fieldTheme: {
				Type:        "string",
				Description: "The id of the UI theme that best matches the last user message.",
				Enum:        snap.ThemeIDs(),
			},
			fieldTranscript: {
				Type:        "string",
				Description: "The transcript of the audio attachment on the last user message.",
			},
		},
		Required: []string{fieldSound, fieldTheme},
	}
	if lastHasAudio {
		schema.Required = append(schema.Required, fieldTranscript)
	}

	reply, err := r.model.Generate(ctx, llm.Request{
		System:  system,
		History: history,
		Schema:  schema,
	})
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	var decision structuredDecision
	if err := json.Unmarshal([]byte(reply.Text), &decision); err != nil {
		// A malformed reply is the model's failure, not the caller's.
		// Record the raw text in the ledger and report no picks.
		logging.ResolverWarn("structured reply is not valid JSON: %v", err)
	}

	out := history
	if lastHasAudio && strings.TrimSpace(decision.Transcript) != "" {
		last := out.Last()
		// Typed text outranks the model's transcript; the transcript
		// only stands in for the audio when no text was typed.
		text := last.Text()
		if strings.TrimSpace(text) == "" {
			text = decision.Transcript
		}
		out = out.ReplaceLast(ledger.Turn{
			ID:    last.ID,
			Role:  ledger.RoleUser,
			Parts: []ledger.Part{ledger.TextPart(text)},
		})
	}
	out = out.Append(ledger.NewModelTurn(ledger.TextPart(reply.Text)))

	soundID, themeID := r.validate(snap, decision.SoundID, decision.ThemeID)
	return &Outcome{SoundID: soundID, ThemeID: themeID, Ledger: out}, nil
}

func (r *Resolver) resolveWithTools(ctx context.Context, snap *catalog.Snapshot, system string, history ledger.Ledger) (*Outcome, error) {
	tools := []llm.ToolDefinition{
		{
			Name:        toolPlaySound,
			Description: "Play the sound that best matches the last user message.",
			Parameters: llm.Schema{
				Properties: map[string]llm.Property{
					fieldSound: {
						Type:        "string",
						Description: "The id of the sound to play.",
						Enum:        snap.EnabledSoundIDs(),
					},
				},
				Required: []string{fieldSound},
			},
		},
		{
			Name:        toolChangeTheme,
			Description: "Apply the UI theme that best matches the last user message.",
			Parameters: llm.Schema{
				Properties: map[string]llm.Property{
					fieldTheme: {
						Type:        "string",
						Description: "The id of the UI theme to apply.",
						Enum:        snap.ThemeIDs(),
					},
				},
				Required: []string{fieldTheme},
			},
		},
	}

	reply, err := r.model.Generate(ctx, llm.Request{
		System:  system,
		History: history,
		Tools:   tools,
	})
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	var rawSound, rawTheme string
	parts := make([]ledger.Part, 0, len(reply.ToolCalls))
	for _, call := range reply.ToolCalls {
		parts = append(parts, ledger.ToolCallPart(call.Name, call.Args))
		switch call.Name {
		case toolPlaySound:
			rawSound = stringArg(call.Args, fieldSound)
		case toolChangeTheme:
			rawTheme = stringArg(call.Args, fieldTheme)
		default:
			logging.ResolverWarn("model invoked unknown tool %q", call.Name)
		}
	}
	if len(parts) == 0 {
		logging.ResolverWarn("forced tool call returned no invocations")
		parts = append(parts, ledger.TextPart(reply.Text))
	}

	out := history.Append(ledger.NewModelTurn(parts...))
	soundID, themeID := r.validate(snap, rawSound, rawTheme)
	return &Outcome{SoundID: soundID, ThemeID: themeID, Ledger: out}, nil
}

// validate maps raw model picks onto the snapshot. Anything unknown, empty
// or disabled collapses to nil; a bad pick on one axis never poisons the
// other.
func (r *Resolver) validate(snap *catalog.Snapshot, rawSound, rawTheme string) (*string, *string) {
	var soundID, themeID *string
	if rawSound != "" {
		if snap.SoundEnabled(rawSound) {
			soundID = &rawSound
		} else {
			logging.ResolverWarn("model picked unknown or disabled sound %q", rawSound)
		}
	}
	if rawTheme != "" {
		if snap.ThemeKnown(rawTheme) {
			themeID = &rawTheme
		} else {
			logging.ResolverWarn("model picked unknown theme %q", rawTheme)
		}
	}
	logging.Resolver("decision sound=%s theme=%s", orNone(soundID), orNone(themeID))
	return soundID, themeID
}

func stringArg(args map[string]interface{}, key string) string {
	v, ok := args[key].(string)
	if !ok {
		return ""
	}
	return v
}

func orNone(s *string) string {
	if s == nil {
		return "<none>"
	}
	return *s
}
