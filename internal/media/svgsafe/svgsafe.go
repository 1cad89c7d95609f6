// Package svgsafe filters model-produced SVG down to an element allow-list before it is
// handed to any client. All markup from a text model goes through Sanitize.
package svgsafe

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

const svgNS = "http://www.w3.org/2000/svg"

// allowed maps lowercased element names to their canonical SVG spelling.
var allowed = func() map[string]string {
	names := []string{
		"svg", "g", "defs", "title", "desc",
		"path", "circle", "ellipse", "rect", "line", "polyline", "polygon",
		"text", "tspan",
		"clipPath", "use", "marker",
		"linearGradient", "radialGradient", "stop",
	}
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = n
	}
	return m
}()

var errNoRoot = errors.New("no svg root")

// Sanitize returns the filtered markup and true, or "" and false when no <svg> root
// survives. It never panics on malformed input.
func Sanitize(raw string) (string, bool) {
	s := stripFences(raw)
	lower := strings.ToLower(s)
	start := strings.Index(lower, "<svg")
	end := strings.LastIndex(lower, "</svg>")
	if start < 0 || end < start {
		return "", false
	}
	out, err := filter(s[start : end+len("</svg>")])
	if err != nil {
		return "", false
	}
	return out, true
}

type frame struct {
	name string
	emit bool
}

func filter(doc string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var (
		buf     bytes.Buffer
		stack   []frame
		skip    int // depth inside a dropped subtree
		pending bool
		rooted  bool
		closed  bool
	)
	closePending := func() {
		if pending {
			buf.WriteByte('>')
			pending = false
		}
	}

	for !closed {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if skip > 0 {
				skip++
				stack = append(stack, frame{emit: false})
				continue
			}
			name, ok := allowed[strings.ToLower(t.Name.Local)]
			if !rooted {
				if !ok || name != "svg" {
					return "", errNoRoot
				}
				rooted = true
			}
			if !ok {
				skip = 1
				stack = append(stack, frame{emit: false})
				continue
			}
			closePending()
			buf.WriteByte('<')
			buf.WriteString(name)
			if len(stack) == 0 {
				buf.WriteString(` xmlns="` + svgNS + `"`)
			}
			for _, a := range t.Attr {
				key, val, ok := attr(a)
				if !ok {
					continue
				}
				buf.WriteByte(' ')
				buf.WriteString(key)
				buf.WriteString(`="`)
				_ = xml.EscapeText(&buf, []byte(val))
				buf.WriteByte('"')
			}
			pending = true
			stack = append(stack, frame{name: name, emit: true})

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !top.emit {
				if skip > 0 {
					skip--
				}
				continue
			}
			if pending {
				buf.WriteString("/>")
				pending = false
			} else {
				buf.WriteString("</" + top.name + ">")
			}
			if len(stack) == 0 {
				closed = true
			}

		case xml.CharData:
			if skip > 0 || len(stack) == 0 {
				continue
			}
			if len(bytes.TrimSpace(t)) == 0 {
				continue
			}
			closePending()
			_ = xml.EscapeText(&buf, t)
		}
		// comments, processing instructions and directives are dropped
	}

	if !rooted {
		return "", errNoRoot
	}
	return buf.String(), nil
}

// attr decides whether an attribute survives and under which name.
func attr(a xml.Attr) (string, string, bool) {
	local := a.Name.Local
	space := a.Name.Space
	lowerLocal := strings.ToLower(local)

	// style carries CSS, which can load resources through too many spellings to filter
	if space == "xmlns" || lowerLocal == "xmlns" || lowerLocal == "style" || strings.HasPrefix(lowerLocal, "on") {
		return "", "", false
	}
	val := strings.TrimSpace(a.Value)
	lowerVal := strings.ToLower(val)

	if lowerLocal == "href" {
		// plain href and xlink:href alike; only same-document references
		if !strings.HasPrefix(val, "#") {
			return "", "", false
		}
		return "href", val, true
	}
	if space != "" {
		return "", "", false
	}
	if hasScheme(lowerVal) || !localURLsOnly(lowerVal) {
		return "", "", false
	}
	for _, bad := range []string{`\`, "://", "expression(", "image(", "image-set("} {
		if strings.Contains(lowerVal, bad) {
			return "", "", false
		}
	}
	return local, val, true
}

var blockedSchemes = []string{"javascript:", "vbscript:", "data:"}

// hasScheme reports whether v starts with a script or data scheme. Whitespace and control
// characters are ignored the way URL parsers ignore them.
func hasScheme(v string) bool {
	v = strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, v)
	for _, s := range blockedSchemes {
		if strings.HasPrefix(v, s) {
			return true
		}
	}
	return false
}

// localURLsOnly reports whether every url(...) in v points at a #fragment.
func localURLsOnly(v string) bool {
	for {
		i := strings.Index(v, "url(")
		if i < 0 {
			return true
		}
		rest := strings.TrimLeft(v[i+len("url("):], " '\"")
		if !strings.HasPrefix(rest, "#") {
			return false
		}
		v = rest
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
