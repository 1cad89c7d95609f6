// Package svgtemplate draws deterministic SVG diagrams from a subject, a diagram type and
// a few labels. Output depends only on the inputs.
package svgtemplate

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

const (
	width  = 800
	height = 600
	font   = "Arial, Helvetica, sans-serif"
)

// Kinds recognised by Render. Anything else draws a title card.
const (
	KindFlow    = "flow"
	KindCycle   = "cycle"
	KindConcept = "concept"
	KindCard    = "card"
)

var palette = []string{"#ffd166", "#06d6a0", "#118ab2", "#ef476f", "#8338ec", "#fb8500"}

// Kind normalises free-form diagram type names.
func Kind(diagramType string) string {
	switch strings.ToLower(strings.TrimSpace(diagramType)) {
	case "flow", "flowchart", "process", "steps", "sequence", "timeline":
		return KindFlow
	case "cycle", "life cycle", "lifecycle", "loop":
		return KindCycle
	case "concept", "concept map", "mind map", "mindmap", "web", "hub":
		return KindConcept
	}
	return KindCard
}

// Render returns a complete SVG document.
func Render(subject, diagramType string, labels []string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "Let's learn"
	}
	labels = dedupe(labels)
	accent := palette[pick(subject, len(palette))]

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	fmt.Fprintf(&b, `<title>%s</title>`, escapeXML(subject))
	b.WriteString(`<defs><marker id="arrow" markerWidth="10" markerHeight="10" refX="8" refY="3" orient="auto"><path d="M0,0 L9,3 L0,6 Z" fill="#222"/></marker></defs>`)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#fdfcf7"/>`, width, height)
	fmt.Fprintf(&b, `<text x="%d" y="64" font-family="%s" font-size="36" font-weight="bold" text-anchor="middle" fill="#222">%s</text>`, width/2, font, escapeXML(truncate(subject, 40)))

	switch kind := Kind(diagramType); {
	case kind == KindFlow && len(labels) > 0:
		flow(&b, labels, accent)
	case kind == KindCycle && len(labels) > 1:
		cycle(&b, labels, accent)
	case kind == KindConcept && len(labels) > 0:
		concept(&b, subject, labels, accent)
	default:
		card(&b, labels, accent)
	}

	b.WriteString(`</svg>`)
	return b.String()
}

func flow(b *strings.Builder, labels []string, accent string) {
	if len(labels) > 4 {
		labels = labels[:4]
	}
	const (
		margin = 32
		gap    = 28
		boxH   = 110
	)
	n := len(labels)
	boxW := (width - margin*2 - gap*(n-1)) / n
	y := (height - boxH) / 2
	for i, raw := range labels {
		x := margin + i*(boxW+gap)
		fmt.Fprintf(b, `<rect x="%d" y="%d" width="%d" height="%d" rx="14" fill="%s" stroke="#222" stroke-width="2"/>`, x, y, boxW, boxH, accent)
		fmt.Fprintf(b, `<text x="%d" y="%d" font-family="%s" font-size="22" text-anchor="middle" fill="#111">%s</text>`, x+boxW/2, y+boxH/2+8, font, escapeXML(truncate(raw, 18)))
		if i < n-1 {
			ay := y + boxH/2
			fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#222" stroke-width="3" marker-end="url(#arrow)"/>`, x+boxW, ay, x+boxW+gap-6, ay)
		}
	}
}

func cycle(b *strings.Builder, labels []string, accent string) {
	if len(labels) > 6 {
		labels = labels[:6]
	}
	cx, cy, r := float64(width/2), float64(height/2+30), 190.0
	n := len(labels)
	pts := make([][2]float64, n)
	for i := range labels {
		a := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		pts[i] = [2]float64{cx + r*math.Cos(a), cy + r*math.Sin(a)}
	}
	for i := range pts {
		p, q := pts[i], pts[(i+1)%n]
		// stop short of the next node so the arrow head stays visible
		dx, dy := q[0]-p[0], q[1]-p[1]
		d := math.Hypot(dx, dy)
		k := 62 / d
		fmt.Fprintf(b, `<line x1="%.0f" y1="%.0f" x2="%.0f" y2="%.0f" stroke="#222" stroke-width="3" marker-end="url(#arrow)"/>`,
			p[0]+dx*k, p[1]+dy*k, q[0]-dx*k, q[1]-dy*k)
	}
	for i, raw := range labels {
		fmt.Fprintf(b, `<circle cx="%.0f" cy="%.0f" r="56" fill="%s" stroke="#222" stroke-width="2"/>`, pts[i][0], pts[i][1], accent)
		fmt.Fprintf(b, `<text x="%.0f" y="%.0f" font-family="%s" font-size="18" text-anchor="middle" fill="#111">%s</text>`, pts[i][0], pts[i][1]+6, font, escapeXML(truncate(raw, 12)))
	}
}

func concept(b *strings.Builder, subject string, labels []string, accent string) {
	if len(labels) > 8 {
		labels = labels[:8]
	}
	cx, cy := float64(width/2), float64(height/2+30)
	n := len(labels)
	for i, raw := range labels {
		a := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		x, y := cx+220*math.Cos(a), cy+180*math.Sin(a)
		fmt.Fprintf(b, `<line x1="%.0f" y1="%.0f" x2="%.0f" y2="%.0f" stroke="#555" stroke-width="2"/>`, cx, cy, x, y)
		fmt.Fprintf(b, `<ellipse cx="%.0f" cy="%.0f" rx="78" ry="34" fill="#ffffff" stroke="%s" stroke-width="3"/>`, x, y, accent)
		fmt.Fprintf(b, `<text x="%.0f" y="%.0f" font-family="%s" font-size="17" text-anchor="middle" fill="#111">%s</text>`, x, y+6, font, escapeXML(truncate(raw, 14)))
	}
	fmt.Fprintf(b, `<circle cx="%.0f" cy="%.0f" r="70" fill="%s" stroke="#222" stroke-width="2"/>`, cx, cy, accent)
	fmt.Fprintf(b, `<text x="%.0f" y="%.0f" font-family="%s" font-size="20" font-weight="bold" text-anchor="middle" fill="#111">%s</text>`, cx, cy+7, font, escapeXML(truncate(subject, 12)))
}

func card(b *strings.Builder, labels []string, accent string) {
	fmt.Fprintf(b, `<circle cx="%d" cy="%d" r="130" fill="%s" opacity="0.85"/>`, width/2, height/2, accent)
	fmt.Fprintf(b, `<circle cx="%d" cy="%d" r="70" fill="#ffffff" opacity="0.6"/>`, width/2, height/2)
	for i, raw := range labels {
		if i >= 3 {
			break
		}
		fmt.Fprintf(b, `<text x="%d" y="%d" font-family="%s" font-size="24" text-anchor="middle" fill="#222">%s</text>`, width/2, 500+i*32, font, escapeXML(truncate(raw, 40)))
	}
}

func pick(s string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(s)))
	return int(h.Sum32() % uint32(n))
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

// Labels derives up to n short labels from free text, for callers without explicit labels.
func Labels(text string, n int) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', ';', '.', '\n', '>':
			return true
		}
		return false
	})
	out := make([]string, 0, n)
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "-"))
		if p == "" {
			continue
		}
		out = append(out, truncate(p, 24))
		if len(out) == n {
			break
		}
	}
	return out
}
