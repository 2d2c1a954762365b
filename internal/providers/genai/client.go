// Package genai adapts the Gemini SDK to the generation.Model contract.
package genai

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	genaisdk "google.golang.org/genai"

	"bananaart/internal/generation"
	"bananaart/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *infra.Logger
}

// Client sends composed requests to Gemini. Without an API key it answers with
// deterministic synthetic images so the pipeline stays usable locally.
type Client struct {
	sdk    *genaisdk.Client
	model  string
	logger *infra.Logger
}

// NewClient constructs a Gemini client with sane defaults.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash-image"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}

	c := &Client{model: model, logger: logger}
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		logger.Warn().Str("model", model).Msg("genai: no api key configured; using synthetic output")
		return c, nil
	}

	cfg := &genaisdk.ClientConfig{
		APIKey:  apiKey,
		Backend: genaisdk.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genaisdk.HTTPOptions{BaseURL: base}
	}
	sdk, err := genaisdk.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	c.sdk = sdk
	return c, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// Synthetic reports whether the client answers without calling Gemini.
func (c *Client) Synthetic() bool {
	return c.sdk == nil
}

// Generate sends req as a single user turn and returns the first candidate's
// parts. Errors are returned as-is; the caller decides how to record them.
func (c *Client) Generate(ctx context.Context, req generation.Request) (*generation.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.sdk == nil {
		return syntheticResponse(c.model, req), nil
	}

	contents := []*genaisdk.Content{genaisdk.NewContentFromParts(toSDKParts(req.Parts), genaisdk.RoleUser)}
	resp, err := c.sdk.Models.GenerateContent(ctx, c.model, contents, contentConfig(req))
	if err != nil {
		return nil, fmt.Errorf("genai: generate content: %w", err)
	}

	out := fromSDKResponse(resp)
	c.logger.Debug().
		Str("model", c.model).
		Int("parts_in", len(req.Parts)).
		Int("parts_out", len(out.Parts)).
		Msg("genai: generate content")
	return out, nil
}

// contentConfig asks for text and image output and passes the aspect ratio as
// the model's image option. The prompt keeps its text hint as well.
func contentConfig(req generation.Request) *genaisdk.GenerateContentConfig {
	config := &genaisdk.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	if ar := strings.TrimSpace(req.AspectRatio); ar != "" {
		config.ImageConfig = &genaisdk.ImageConfig{AspectRatio: ar}
	}
	return config
}

func toSDKParts(parts []generation.Part) []*genaisdk.Part {
	out := make([]*genaisdk.Part, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case generation.PartBinary:
			out = append(out, genaisdk.NewPartFromBytes(p.Data, p.MIMEType))
		default:
			out = append(out, genaisdk.NewPartFromText(p.Text))
		}
	}
	return out
}

// fromSDKResponse keeps the parts of the first candidate that has content.
// Thought parts are dropped. The aggregate text is only consulted when the
// candidate carries no parts.
func fromSDKResponse(resp *genaisdk.GenerateContentResponse) *generation.Response {
	out := &generation.Response{}
	if resp == nil {
		return out
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil || len(cand.Content.Parts) == 0 {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				out.Parts = append(out.Parts, generation.BinaryPart(part.InlineData.Data, part.InlineData.MIMEType))
				continue
			}
			if part.Text != "" {
				out.Parts = append(out.Parts, generation.TextPart(part.Text))
			}
		}
		break
	}
	if len(out.Parts) == 0 && len(resp.Candidates) > 0 {
		out.Text = resp.Text()
	}
	return out
}
