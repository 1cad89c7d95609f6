package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystem_Idempotent(t *testing.T) {
	once := ApplySystem("Write a lesson.", ModeText, "grade 2")
	twice := ApplySystem(once, ModeText, "grade 2")
	if once != twice {
		t.Fatalf("second application changed the prompt")
	}
	if !strings.HasSuffix(once, "Write a lesson.") {
		t.Fatalf("base prompt must stay last: %q", once)
	}
	if !strings.Contains(once, "Audience: grade 2.") {
		t.Fatalf("missing audience: %q", once)
	}
}

func TestApplySystem_EmptyStaysEmpty(t *testing.T) {
	if got := ApplySystem("  ", ModeJSON, "x"); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestApplySystem_ModeLine(t *testing.T) {
	if !strings.Contains(ApplySystem("x", ModeJSON, ""), "Return only JSON") {
		t.Fatalf("json mode line missing")
	}
	if !strings.Contains(ApplySystem("x", ModeSVG, ""), "single <svg>") {
		t.Fatalf("svg mode line missing")
	}
}
