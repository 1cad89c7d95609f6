package raster

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestCard_EncodesPNG(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw, err := r.Card("Butterflies", []string{"Egg", "Caterpillar", "Butterfly", "ignored"})
	if err != nil {
		t.Fatalf("Card: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != Width || b.Dy() != Height {
		t.Fatalf("bounds=%v", b)
	}
}

func TestNew_BadFontPath(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing.ttf")); err == nil {
		t.Fatalf("expected error for missing font")
	}
	bad := filepath.Join(t.TempDir(), "bad.ttf")
	if err := os.WriteFile(bad, []byte("not a font"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(bad); err == nil {
		t.Fatalf("expected error for invalid font")
	}
}
