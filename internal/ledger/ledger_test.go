package ledger

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateEmptyLedger(t *testing.T) {
	var l Ledger
	err := l.Validate()
	if err == nil {
		t.Fatal("expected error for empty ledger")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Index != -1 {
		t.Errorf("expected index -1, got %d", verr.Index)
	}
}

func TestValidateAcceptsWellFormedLedger(t *testing.T) {
	l := Ledger{
		NewUserText("a pirate ship approaches"),
		NewModelTurn(TextPart(`{"soundId":"pirates","themeId":"corsair"}`)),
		NewUserText("now they board us"),
	}
	if err := l.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateRoleRules(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString([]byte("riff"))

	cases := []struct {
		name string
		turn Turn
		ok   bool
	}{
		{"user text", Turn{ID: "t1", Role: RoleUser, Parts: []Part{TextPart("hi")}}, true},
		{"user audio", Turn{ID: "t2", Role: RoleUser, Parts: []Part{AudioPart(audio, "audio/wav")}}, true},
		{"user tool call", Turn{ID: "t3", Role: RoleUser, Parts: []Part{ToolCallPart("play_sound", nil)}}, false},
		{"user bad base64", Turn{ID: "t4", Role: RoleUser, Parts: []Part{AudioPart("not-base64!!", "audio/wav")}}, false},
		{"user empty audio", Turn{ID: "t5", Role: RoleUser, Parts: []Part{AudioPart("", "audio/wav")}}, false},
		{"model text", Turn{ID: "t6", Role: RoleModel, Parts: []Part{TextPart("ok")}}, true},
		{"model tool call", Turn{ID: "t7", Role: RoleModel, Parts: []Part{ToolCallPart("change_theme", map[string]interface{}{"themeId": "ember"})}}, true},
		{"model audio", Turn{ID: "t8", Role: RoleModel, Parts: []Part{AudioPart(audio, "audio/wav")}}, false},
		{"tool text", Turn{ID: "t9", Role: RoleTool, Parts: []Part{TextPart("done")}}, true},
		{"tool tool call", Turn{ID: "t10", Role: RoleTool, Parts: []Part{ToolCallPart("x", nil)}}, false},
		{"unknown role", Turn{ID: "t11", Role: Role("assistant"), Parts: []Part{TextPart("hi")}}, false},
		{"no parts", Turn{ID: "t12", Role: RoleUser, Parts: nil}, false},
		{"no id", Turn{Role: RoleUser, Parts: []Part{TextPart("hi")}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Ledger{tc.turn}.Validate()
			if tc.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestAppendDoesNotMutateReceiver(t *testing.T) {
	base := Ledger{NewUserText("one")}
	grown := base.Append(NewModelTurn(TextPart("two")))

	if len(base) != 1 {
		t.Errorf("receiver mutated: len=%d", len(base))
	}
	if len(grown) != 2 {
		t.Errorf("expected 2 turns, got %d", len(grown))
	}
}

func TestReplaceLast(t *testing.T) {
	base := Ledger{NewUserText("one"), NewUserAudio(base64.StdEncoding.EncodeToString([]byte("x")), "audio/wav")}
	corrected := base.ReplaceLast(Turn{ID: base.Last().ID, Role: RoleUser, Parts: []Part{TextPart("transcript")}})

	if corrected.Last().Text() != "transcript" {
		t.Errorf("expected replaced text, got %q", corrected.Last().Text())
	}
	if corrected.Last().ID != base.Last().ID {
		t.Error("replacement should be able to keep the original turn id")
	}
	if !base.Last().HasAudio() {
		t.Error("receiver mutated by ReplaceLast")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString([]byte("wavdata"))
	in := Ledger{
		NewUserAudio(audio, "audio/wav"),
		NewModelTurn(
			ToolCallPart("play_sound", map[string]interface{}{"soundId": "pirates"}),
			ToolCallPart("change_theme", map[string]interface{}{"themeId": "corsair"}),
		),
	}

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var out Ledger
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("round-tripped ledger failed validation: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("ledger changed across round trip (-in +out):\n%s", diff)
	}
}

func TestTurnText(t *testing.T) {
	turn := NewModelTurn(ToolCallPart("play_sound", nil), TextPart("raw reply"))
	if turn.Text() != "raw reply" {
		t.Errorf("expected first text part, got %q", turn.Text())
	}

	audioTurn := NewUserAudio(base64.StdEncoding.EncodeToString([]byte("x")), "audio/mp3")
	if audioTurn.Text() != "" {
		t.Errorf("expected empty text for audio-only turn, got %q", audioTurn.Text())
	}
}
