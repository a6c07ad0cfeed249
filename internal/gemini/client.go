// Package gemini implements the llm.Client contract on Google's Gemini API
// via the official genai SDK. It supports both output constraints the
// resolver uses: schema-constrained JSON and forced function calling.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"ambiance/internal/ledger"
	"ambiance/internal/llm"
	"ambiance/internal/logging"
)

// Config holds the Gemini client settings.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:  apiKey,
		Model:   "gemini-2.5-flash-lite",
		Timeout: 60 * time.Second,
	}
}

// Client is a Gemini-backed llm.Client.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultConfig("").Model
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig("").Timeout
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Client{client: gc, model: model, timeout: timeout}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate sends one generation call. It applies the request-level timeout
// when the context carries no deadline and spaces requests out slightly,
// but performs no retries - retry policy belongs to the caller.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Reply, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.UpstreamDebug("[Gemini] Generate: model=%s turns=%d schema=%t tools=%d",
		c.model, len(req.History), req.Schema != nil, len(req.Tools))

	contents, err := contentsFromLedger(req.History)
	if err != nil {
		return nil, err
	}

	genCfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if req.Schema != nil {
		genCfg.ResponseMIMEType = "application/json"
		genCfg.ResponseSchema = schemaToGenai(req.Schema)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(req.Tools))
		names := make([]string, len(req.Tools))
		for i, t := range req.Tools {
			params := schemaToGenai(&t.Parameters)
			decls[i] = &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			}
			names[i] = t.Name
		}
		genCfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		// Mode ANY forces the model to answer with function calls only.
		genCfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode:                 genai.FunctionCallingConfigModeAny,
				AllowedFunctionNames: names,
			},
		}
	}

	// Courtesy spacing between calls.
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
	if err != nil {
		logging.Get(logging.CategoryUpstream).Error("[Gemini] Generate failed after %v: %v", time.Since(startTime), err)
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	reply := replyFromResponse(resp)
	logging.Upstream("[Gemini] Generate: completed in %v text_len=%d tool_calls=%d",
		time.Since(startTime), len(reply.Text), len(reply.ToolCalls))
	return reply, nil
}

// contentsFromLedger maps conversation turns to the Gemini content list.
// Tool turns carry plain text and are presented as user content.
func contentsFromLedger(l ledger.Ledger) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(l))
	for i, turn := range l {
		role := genai.RoleUser
		if turn.Role == ledger.RoleModel {
			role = genai.RoleModel
		}
		parts := make([]*genai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			switch {
			case p.InlineAudio != nil:
				data, err := base64.StdEncoding.DecodeString(p.InlineAudio.Data)
				if err != nil {
					return nil, fmt.Errorf("turn %d: invalid audio payload: %w", i, err)
				}
				parts = append(parts, &genai.Part{
					InlineData: &genai.Blob{MIMEType: p.InlineAudio.MIMEType, Data: data},
				})
			case p.ToolCall != nil:
				var args map[string]any
				if err := json.Unmarshal([]byte(p.ToolCall.ArgsJSON), &args); err != nil {
					args = map[string]any{}
				}
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: p.ToolCall.Name, Args: args},
				})
			default:
				parts = append(parts, &genai.Part{Text: p.Text})
			}
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents, nil
}

func schemaToGenai(s *llm.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s.Properties)),
		Required:   s.Required,
	}
	for name, prop := range s.Properties {
		out.Properties[name] = &genai.Schema{
			Type:        genai.TypeString,
			Description: prop.Description,
			Enum:        prop.Enum,
		}
	}
	return out
}

func replyFromResponse(resp *genai.GenerateContentResponse) *llm.Reply {
	reply := &llm.Reply{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return reply
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			reply.ToolCalls = append(reply.ToolCalls, llm.ToolCall{
				ID:   fmt.Sprintf("call_%d", len(reply.ToolCalls)),
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}
	reply.Text = strings.TrimSpace(text.String())
	return reply
}
