// Package raster renders simple PNG illustration cards: a coloured background, a subject
// heading and a few caption lines.
package raster

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

const (
	Width  = 1024
	Height = 768
)

var backgrounds = []string{"#ffd166", "#06d6a0", "#118ab2", "#ef476f", "#8338ec", "#fb8500"}

type Renderer struct {
	title   font.Face
	caption font.Face
}

// New loads fontPath as a TTF when set; otherwise the built-in bitmap face is used.
func New(fontPath string) (*Renderer, error) {
	if strings.TrimSpace(fontPath) == "" {
		return &Renderer{title: basicfont.Face7x13, caption: basicfont.Face7x13}, nil
	}
	title, err := loadFontFace(fontPath, 56)
	if err != nil {
		return nil, err
	}
	caption, err := loadFontFace(fontPath, 30)
	if err != nil {
		return nil, err
	}
	return &Renderer{title: title, caption: caption}, nil
}

// Card renders a PNG for subject with up to three caption lines.
func (r *Renderer) Card(subject string, captions []string) ([]byte, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "Let's learn"
	}
	dc := gg.NewContext(Width, Height)

	dc.SetHexColor(backgrounds[pick(subject, len(backgrounds))])
	dc.DrawRectangle(0, 0, Width, Height)
	dc.Fill()

	// soft panel behind the text
	dc.SetRGBA(1, 1, 1, 0.85)
	dc.DrawRoundedRectangle(64, 96, Width-128, Height-192, 36)
	dc.Fill()

	dc.SetRGB(0.13, 0.13, 0.13)
	dc.SetFontFace(r.title)
	dc.DrawStringWrapped(subject, Width/2, Height/3, 0.5, 0.5, Width-220, 1.3, gg.AlignCenter)

	dc.SetFontFace(r.caption)
	y := float64(Height) * 0.6
	for i, c := range captions {
		if i >= 3 {
			break
		}
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		dc.DrawStringAnchored(c, Width/2, y, 0.5, 0.5)
		_, h := dc.MeasureString(c)
		y += h*1.8 + 8
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func pick(s string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(s)))
	return int(h.Sum32() % uint32(n))
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}
