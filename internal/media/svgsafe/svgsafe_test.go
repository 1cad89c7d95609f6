package svgsafe

import (
	"strings"
	"testing"
)

func TestSanitize_StripsScript(t *testing.T) {
	out, ok := Sanitize("<svg><script>alert(1)</script><rect/></svg>")
	if !ok {
		t.Fatalf("rejected")
	}
	if !strings.Contains(out, "<rect") || strings.Contains(out, "<script") || strings.Contains(out, "alert") {
		t.Fatalf("out=%q", out)
	}
}

func TestSanitize_NoSVG(t *testing.T) {
	if out, ok := Sanitize("no svg here"); ok || out != "" {
		t.Fatalf("out=%q ok=%v", out, ok)
	}
	if _, ok := Sanitize("<div><p>hi</p></div>"); ok {
		t.Fatalf("html without svg must be rejected")
	}
}

func TestSanitize_FencesAndProse(t *testing.T) {
	raw := "Here is your diagram:\n```svg\n<svg viewBox=\"0 0 10 10\"><circle cx=\"5\" cy=\"5\" r=\"4\"/></svg>\n```"
	out, ok := Sanitize(raw)
	if !ok {
		t.Fatalf("rejected")
	}
	if !strings.HasPrefix(out, "<svg") || !strings.HasSuffix(out, "</svg>") {
		t.Fatalf("out=%q", out)
	}
	if !strings.Contains(out, `viewBox="0 0 10 10"`) {
		t.Fatalf("camelCase attribute lost: %q", out)
	}
}

func TestSanitize_DropsHandlersAndForeignContent(t *testing.T) {
	raw := `<svg xmlns="http://www.w3.org/2000/svg" onload="evil()">
<style>rect{fill:red}</style>
<foreignObject><iframe src="https://x"></iframe></foreignObject>
<g onclick="x()"><rect width="4" height="4" onmouseover="y()"/></g>
<object data="x"></object><embed src="y"/><form><input/></form>
</svg>`
	out, ok := Sanitize(raw)
	if !ok {
		t.Fatalf("rejected")
	}
	for _, bad := range []string{"onload", "onclick", "onmouseover", "<style", "<foreignObject", "<iframe", "<object", "<embed", "<form", "<input"} {
		if strings.Contains(out, bad) {
			t.Fatalf("%s survived: %q", bad, out)
		}
	}
	if !strings.Contains(out, `<rect width="4" height="4"/>`) {
		t.Fatalf("out=%q", out)
	}
}

func TestSanitize_References(t *testing.T) {
	raw := `<svg xmlns:xlink="http://www.w3.org/1999/xlink">
<defs><linearGradient id="g1"><stop offset="0" stop-color="#fff"/></linearGradient></defs>
<rect fill="url(#g1)" width="1" height="1"/>
<rect fill="url(https://evil/x.svg#a)" width="1" height="1"/>
<use xlink:href="#g1"/>
<use href="https://evil/sprite.svg#icon"/>
</svg>`
	out, ok := Sanitize(raw)
	if !ok {
		t.Fatalf("rejected")
	}
	if !strings.Contains(out, `fill="url(#g1)"`) {
		t.Fatalf("local url dropped: %q", out)
	}
	if strings.Contains(out, "evil") {
		t.Fatalf("external reference survived: %q", out)
	}
	if !strings.Contains(out, `<use href="#g1"/>`) {
		t.Fatalf("local href dropped: %q", out)
	}
	if !strings.Contains(out, "<linearGradient") || !strings.Contains(out, `offset="0"`) {
		t.Fatalf("gradient mangled: %q", out)
	}
}

func TestSanitize_TextIsEscaped(t *testing.T) {
	out, ok := Sanitize(`<svg><text x="1" y="2">Sun &amp; Moon</text></svg>`)
	if !ok {
		t.Fatalf("rejected")
	}
	if !strings.Contains(out, "Sun &amp; Moon") {
		t.Fatalf("out=%q", out)
	}
}

func TestSanitize_GarbageNeverPanics(t *testing.T) {
	inputs := []string{
		"<svg",
		"</svg><svg>",
		"<svg><<<>>></svg>",
		"<svg><rect></svg>",
		"```\n```",
		"<SVG></SVG>",
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("panic on %q: %v", in, r)
				}
			}()
			_, _ = Sanitize(in)
		}()
	}
}

func TestSanitize_StyleCannotLoadResources(t *testing.T) {
	inputs := []string{
		`<svg style="background-image:image-set('http://evil.example/p.png' 1x)"><rect/></svg>`,
		`<svg><rect style="fill:u\72l(http://evil.example/p.png)"/></svg>`,
		`<svg><rect fill="u\72l(http://evil.example/p.png)"/></svg>`,
		`<svg><rect filter="image('http://evil.example/p.png')"/></svg>`,
	}
	for _, in := range inputs {
		out, ok := Sanitize(in)
		if !ok {
			t.Fatalf("rejected %q", in)
		}
		if strings.Contains(out, "evil") || strings.Contains(out, "style=") {
			t.Fatalf("external reference survived: %q", out)
		}
		if !strings.Contains(out, "<rect") {
			t.Fatalf("element lost: %q", out)
		}
	}
}

func TestSanitize_SchemesOnlyAtValueStart(t *testing.T) {
	out, ok := Sanitize(`<svg><rect aria-label="metadata: size" fill="data:image/png;base64,AAAA"/><text x="1" fill=" java	script:alert(1)">hi</text></svg>`)
	if !ok {
		t.Fatalf("rejected")
	}
	if !strings.Contains(out, `aria-label="metadata: size"`) {
		t.Fatalf("harmless value dropped: %q", out)
	}
	if strings.Contains(out, "base64") || strings.Contains(out, "script") {
		t.Fatalf("scheme survived: %q", out)
	}
}
