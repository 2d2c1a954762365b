package genai

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	"bananaart/internal/generation"
)

// syntheticResponse renders a deterministic PNG sized after the aspect ratio.
// The same request always yields the same bytes.
func syntheticResponse(model string, req generation.Request) *generation.Response {
	var prompt string
	var images int
	for _, p := range req.Parts {
		switch p.Kind {
		case generation.PartText:
			prompt += p.Text
		case generation.PartBinary:
			images++
		}
	}
	width, height := normalizeAspect(req.AspectRatio)
	seed := deterministicSeed(model, prompt, req.AspectRatio, images)
	data := renderSyntheticImage(width, height, seed)
	if data == nil {
		return &generation.Response{Text: "synthetic output unavailable for: " + prompt}
	}
	return &generation.Response{Parts: []generation.Part{generation.BinaryPart(data, "image/png")}}
}

func renderSyntheticImage(width, height int, seed string) []byte {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1024
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := max(32, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, min(height, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	diagonal := colorFromSeed(seed, 2)
	for x := 0; x < max(width, height); x += max(16, width/32) {
		for y := 0; y < height; y++ {
			xx := x + y
			if xx >= width {
				break
			}
			img.Set(xx, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{R: parseHexByte(segment[0:2]), G: parseHexByte(segment[2:4]), B: parseHexByte(segment[4:6]), A: 255}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

// normalizeAspect maps "w:h" onto pixel dimensions with a 1024px width.
// Synthetic renders are capped at 2048px on the long edge.
func normalizeAspect(aspect string) (int, int) {
	switch strings.TrimSpace(aspect) {
	case "16:9":
		return 1920, 1080
	case "9:16":
		return 1080, 1920
	case "1:1", "":
		return 1024, 1024
	}
	w, h, ok := strings.Cut(aspect, ":")
	if !ok {
		return 1024, 1024
	}
	a, errA := strconv.Atoi(strings.TrimSpace(w))
	b, errB := strconv.Atoi(strings.TrimSpace(h))
	if errA != nil || errB != nil || a <= 0 || b <= 0 {
		return 1024, 1024
	}
	height := 1024 * b / a
	if height < 1 {
		height = 1
	}
	if height > 2048 {
		return 1024 * 2048 / height, 2048
	}
	return 1024, height
}
