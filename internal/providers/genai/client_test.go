package genai

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	genaisdk "google.golang.org/genai"

	"bananaart/internal/generation"
)

func TestToSDKPartsKeepsOrder(t *testing.T) {
	parts := toSDKParts([]generation.Part{
		generation.TextPart("draw, aspect ratio 1:1"),
		generation.BinaryPart([]byte{1, 2}, "image/png"),
		generation.BinaryPart([]byte{3}, "image/jpeg"),
	})
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	if parts[0].Text != "draw, aspect ratio 1:1" {
		t.Fatalf("unexpected text part %q", parts[0].Text)
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "image/png" || len(parts[1].InlineData.Data) != 2 {
		t.Fatalf("unexpected first image part %+v", parts[1].InlineData)
	}
	if parts[2].InlineData == nil || parts[2].InlineData.MIMEType != "image/jpeg" {
		t.Fatalf("unexpected second image part %+v", parts[2].InlineData)
	}
}

func TestContentConfigCarriesAspectRatio(t *testing.T) {
	cfg := contentConfig(generation.Request{
		Parts:       []generation.Part{generation.TextPart("a fox, aspect ratio 16:9")},
		AspectRatio: "16:9",
	})
	if len(cfg.ResponseModalities) != 2 || cfg.ResponseModalities[0] != "TEXT" || cfg.ResponseModalities[1] != "IMAGE" {
		t.Fatalf("unexpected modalities %v", cfg.ResponseModalities)
	}
	if cfg.ImageConfig == nil || cfg.ImageConfig.AspectRatio != "16:9" {
		t.Fatalf("aspect ratio not passed as image option: %+v", cfg.ImageConfig)
	}

	if cfg := contentConfig(generation.Request{}); cfg.ImageConfig != nil {
		t.Fatalf("empty aspect ratio should leave the image option unset")
	}
}

func TestFromSDKResponse(t *testing.T) {
	resp := &genaisdk.GenerateContentResponse{
		Candidates: []*genaisdk.Candidate{
			{Content: &genaisdk.Content{}},
			{Content: &genaisdk.Content{Parts: []*genaisdk.Part{
				{Text: "thinking", Thought: true},
				{Text: "here you go"},
				{InlineData: &genaisdk.Blob{MIMEType: "image/webp", Data: []byte("img")}},
			}}},
			{Content: &genaisdk.Content{Parts: []*genaisdk.Part{{Text: "second candidate"}}}},
		},
	}
	out := fromSDKResponse(resp)
	if len(out.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(out.Parts))
	}
	if out.Parts[0].Kind != generation.PartText || out.Parts[0].Text != "here you go" {
		t.Fatalf("unexpected first part %+v", out.Parts[0])
	}
	if out.Parts[1].Kind != generation.PartBinary || out.Parts[1].MIMEType != "image/webp" {
		t.Fatalf("unexpected second part %+v", out.Parts[1])
	}
	if out.Text != "" {
		t.Fatalf("aggregate text should stay empty when parts exist, got %q", out.Text)
	}
}

func TestFromSDKResponseEmpty(t *testing.T) {
	if out := fromSDKResponse(nil); len(out.Parts) != 0 || out.Text != "" {
		t.Fatalf("nil response should map to an empty response")
	}
	if out := fromSDKResponse(&genaisdk.GenerateContentResponse{}); len(out.Parts) != 0 || out.Text != "" {
		t.Fatalf("response without candidates should map to an empty response")
	}
}

func TestSyntheticClient(t *testing.T) {
	client, err := NewClient(context.Background(), Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if !client.Synthetic() {
		t.Fatalf("client without api key should be synthetic")
	}
	if client.Model() != "gemini-2.5-flash-image" {
		t.Fatalf("unexpected default model %q", client.Model())
	}

	req := generation.Request{Parts: []generation.Part{generation.TextPart("a fox, aspect ratio 16:9")}, AspectRatio: "16:9"}
	first, err := client.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := client.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(first.Parts) != 1 || first.Parts[0].MIMEType != "image/png" {
		t.Fatalf("expected one png part, got %+v", first.Parts)
	}
	if !bytes.Equal(first.Parts[0].Data, second.Parts[0].Data) {
		t.Fatalf("synthetic output should be deterministic")
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(first.Parts[0].Data))
	if err != nil {
		t.Fatalf("decode synthetic png: %v", err)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Fatalf("unexpected size %dx%d", cfg.Width, cfg.Height)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Generate(ctx, req); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestNormalizeAspect(t *testing.T) {
	cases := map[string][2]int{
		"":     {1024, 1024},
		"1:1":  {1024, 1024},
		"4:3":  {1024, 768},
		"1:4":  {512, 2048},
		"bad":  {1024, 1024},
		"0:1":  {1024, 1024},
		"9:16": {1080, 1920},
	}
	for in, want := range cases {
		w, h := normalizeAspect(in)
		if w != want[0] || h != want[1] {
			t.Fatalf("normalizeAspect(%q) = %dx%d, want %dx%d", in, w, h, want[0], want[1])
		}
	}
}
