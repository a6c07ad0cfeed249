// Package ledger defines the conversation history exchanged with the intent
// resolver. A ledger is an ordered, append-only sequence of turns; insertion
// order is chronological order is model context order. The server never
// persists a ledger - each resolution call receives the full history and
// returns the augmented one.
package ledger

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// InlineAudio carries a recorded audio payload inline, base64-encoded.
type InlineAudio struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// ToolCall records a model-issued function invocation.
type ToolCall struct {
	Name     string `json:"name"`
	ArgsJSON string `json:"argumentsJson"`
}

// Part is one content segment of a turn. Exactly one field is set; which
// fields are legal depends on the turn's role (see Validate).
type Part struct {
	Text        string       `json:"text,omitempty"`
	InlineAudio *InlineAudio `json:"inlineAudio,omitempty"`
	ToolCall    *ToolCall    `json:"toolCall,omitempty"`
}

// IsText reports whether the part is a text part. An empty text part is
// still a text part as long as no other variant is set.
func (p Part) IsText() bool {
	return p.InlineAudio == nil && p.ToolCall == nil
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// AudioPart builds an inline-audio part.
func AudioPart(data, mimeType string) Part {
	return Part{InlineAudio: &InlineAudio{Data: data, MIMEType: mimeType}}
}

// ToolCallPart builds a tool-call part with JSON-serialized arguments.
func ToolCallPart(name string, args map[string]interface{}) Part {
	raw, err := json.Marshal(args)
	if err != nil {
		raw = []byte("{}")
	}
	return Part{ToolCall: &ToolCall{Name: name, ArgsJSON: string(raw)}}
}

// Turn is one entry in the conversation.
type Turn struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserText builds a user turn carrying a single text part.
func NewUserText(text string) Turn {
	return Turn{ID: uuid.NewString(), Role: RoleUser, Parts: []Part{TextPart(text)}}
}

// NewUserAudio builds a user turn carrying a single inline-audio part.
func NewUserAudio(data, mimeType string) Turn {
	return Turn{ID: uuid.NewString(), Role: RoleUser, Parts: []Part{AudioPart(data, mimeType)}}
}

// NewModelTurn builds a model turn from the given parts.
func NewModelTurn(parts ...Part) Turn {
	return Turn{ID: uuid.NewString(), Role: RoleModel, Parts: parts}
}

// Text returns the turn's first text part, or "".
func (t Turn) Text() string {
	for _, p := range t.Parts {
		if p.IsText() {
			return p.Text
		}
	}
	return ""
}

// HasAudio reports whether any part carries an inline audio payload.
func (t Turn) HasAudio() bool {
	for _, p := range t.Parts {
		if p.InlineAudio != nil {
			return true
		}
	}
	return false
}

// Ledger is the ordered conversation history.
type Ledger []Turn

// ValidationError reports a malformed ledger. It is returned before any
// upstream call is attempted; no side effects have occurred.
type ValidationError struct {
	Index  int    // offending turn index, -1 for ledger-level problems
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid ledger: %s", e.Reason)
	}
	return fmt.Sprintf("invalid ledger: turn %d: %s", e.Index, e.Reason)
}

func invalid(index int, format string, args ...interface{}) error {
	return &ValidationError{Index: index, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the ledger against the turn schema: every turn has an id,
// a known role and at least one part, and each part variant is legal for the
// turn's role (user: text or audio; model: text or tool call; tool: text
// only). Inline audio payloads must be decodable base64.
func (l Ledger) Validate() error {
	if len(l) == 0 {
		return invalid(-1, "ledger is empty")
	}
	for i, turn := range l {
		if strings.TrimSpace(turn.ID) == "" {
			return invalid(i, "missing id")
		}
		if len(turn.Parts) == 0 {
			return invalid(i, "turn has no parts")
		}
		for _, part := range turn.Parts {
			set := 0
			if part.InlineAudio != nil {
				set++
			}
			if part.ToolCall != nil {
				set++
			}
			if set > 1 {
				return invalid(i, "part sets more than one variant")
			}
			switch turn.Role {
			case RoleUser:
				if part.ToolCall != nil {
					return invalid(i, "user turn carries a tool call")
				}
				if part.InlineAudio != nil {
					if part.InlineAudio.Data == "" {
						return invalid(i, "inline audio has no data")
					}
					if _, err := base64.StdEncoding.DecodeString(part.InlineAudio.Data); err != nil {
						return invalid(i, "inline audio is not valid base64")
					}
				}
			case RoleModel:
				if part.InlineAudio != nil {
					return invalid(i, "model turn carries inline audio")
				}
			case RoleTool:
				if part.InlineAudio != nil || part.ToolCall != nil {
					return invalid(i, "tool turn may only carry text")
				}
			default:
				return invalid(i, "unknown role %q", turn.Role)
			}
		}
	}
	return nil
}

// Last returns the final turn. Callers must have validated the ledger first.
func (l Ledger) Last() Turn {
	return l[len(l)-1]
}

// Append returns a new ledger with the turn added; the receiver is unchanged.
func (l Ledger) Append(turn Turn) Ledger {
	out := make(Ledger, 0, len(l)+1)
	out = append(out, l...)
	return append(out, turn)
}

// ReplaceLast returns a new ledger with the final turn swapped out; the
// receiver is unchanged.
func (l Ledger) ReplaceLast(turn Turn) Ledger {
	out := make(Ledger, len(l))
	copy(out, l)
	out[len(out)-1] = turn
	return out
}

// Clone returns a deep-enough copy for snapshot/rollback: the turn slice is
// copied, turns themselves are treated as immutable once appended.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}
