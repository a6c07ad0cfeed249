package gemini

import (
	"encoding/base64"
	"testing"

	"google.golang.org/genai"

	"ambiance/internal/ledger"
	"ambiance/internal/llm"
)

func TestContentsFromLedger(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString([]byte("wav-bytes"))
	l := ledger.Ledger{
		ledger.NewUserText("a pirate ship approaches"),
		ledger.NewModelTurn(ledger.ToolCallPart("play_sound", map[string]interface{}{"soundId": "pirates"})),
		ledger.NewUserAudio(audio, "audio/wav"),
	}

	contents, err := contentsFromLedger(l)
	if err != nil {
		t.Fatalf("contentsFromLedger failed: %v", err)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}

	if contents[0].Role != genai.RoleUser || contents[0].Parts[0].Text != "a pirate ship approaches" {
		t.Errorf("text turn mapped wrong: %+v", contents[0])
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("model turn role mapped wrong: %s", contents[1].Role)
	}
	fc := contents[1].Parts[0].FunctionCall
	if fc == nil || fc.Name != "play_sound" || fc.Args["soundId"] != "pirates" {
		t.Errorf("tool call part mapped wrong: %+v", contents[1].Parts[0])
	}
	blob := contents[2].Parts[0].InlineData
	if blob == nil || blob.MIMEType != "audio/wav" || string(blob.Data) != "wav-bytes" {
		t.Errorf("audio part mapped wrong: %+v", contents[2].Parts[0])
	}
}

func TestContentsFromLedgerRejectsBadAudio(t *testing.T) {
	l := ledger.Ledger{
		{ID: "t1", Role: ledger.RoleUser, Parts: []ledger.Part{ledger.AudioPart("%%%not-base64", "audio/wav")}},
	}
	if _, err := contentsFromLedger(l); err == nil {
		t.Fatal("expected error for undecodable audio payload")
	}
}

func TestSchemaToGenai(t *testing.T) {
	s := &llm.Schema{
		Properties: map[string]llm.Property{
			"soundId": {Type: "string", Enum: []string{"pirates", "goodhaven"}},
			"transcript": {
				Type:        "string",
				Description: "The transcript of the audio file.",
			},
		},
		Required: []string{"soundId"},
	}

	out := schemaToGenai(s)
	if out.Type != genai.TypeObject {
		t.Errorf("expected object type, got %v", out.Type)
	}
	if len(out.Required) != 1 || out.Required[0] != "soundId" {
		t.Errorf("required not carried over: %v", out.Required)
	}
	sound := out.Properties["soundId"]
	if sound == nil || sound.Type != genai.TypeString || len(sound.Enum) != 2 {
		t.Errorf("soundId property mapped wrong: %+v", sound)
	}
	if out.Properties["transcript"].Description == "" {
		t.Error("description dropped")
	}
}

func TestReplyFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role: genai.RoleModel,
					Parts: []*genai.Part{
						{Text: `{"soundId":"pirates"`},
						{Text: `,"themeId":"corsair"}`},
						{FunctionCall: &genai.FunctionCall{Name: "change_theme", Args: map[string]any{"themeId": "ember"}}},
					},
				},
			},
		},
	}

	reply := replyFromResponse(resp)
	if reply.Text != `{"soundId":"pirates","themeId":"corsair"}` {
		t.Errorf("text parts not concatenated: %q", reply.Text)
	}
	if len(reply.ToolCalls) != 1 || reply.ToolCalls[0].Name != "change_theme" {
		t.Errorf("tool calls not extracted: %+v", reply.ToolCalls)
	}

	empty := replyFromResponse(&genai.GenerateContentResponse{})
	if empty.Text != "" || len(empty.ToolCalls) != 0 {
		t.Errorf("empty response should yield empty reply, got %+v", empty)
	}
}
