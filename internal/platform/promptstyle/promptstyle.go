package promptstyle

import "strings"

const marker = "GRADECRAFT_PROMPT_STYLE_V1"

// Mode selects the output contract line appended to the guidance block.
type Mode string

const (
	ModeText Mode = "text"
	ModeJSON Mode = "json"
	ModeSVG  Mode = "svg"
)

// ApplySystem prepends a short guidance block to a system prompt. Applying it twice is a no-op.
func ApplySystem(system string, mode Mode, audience string) string {
	base := strings.TrimSpace(system)
	if base == "" {
		return base
	}
	if strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou write educational material for young learners.")
	if a := strings.TrimSpace(audience); a != "" {
		b.WriteString("\nAudience: " + a + ".")
	}
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nBe accurate, kind and encouraging. Never include unsafe or frightening content.")
	switch mode {
	case ModeJSON:
		b.WriteString("\nReturn only JSON that conforms to the requested schema. No markdown, no commentary.")
	case ModeSVG:
		b.WriteString("\nReturn only a single <svg> element. No scripts, styles, event handlers or external links.")
	default:
		b.WriteString("\nReturn only the requested text. Do not add headings about yourself or notes to the teacher.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return strings.TrimSpace(b.String())
}
