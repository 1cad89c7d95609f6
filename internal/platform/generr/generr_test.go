package generr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsKind_FollowsWrapChain(t *testing.T) {
	base := Parse("openai", "quiz", errors.New("unexpected end of JSON"))
	wrapped := fmt.Errorf("generate quiz: %w", base)
	if !IsKind(wrapped, KindParse) {
		t.Fatalf("expected parse kind")
	}
	if IsKind(wrapped, KindTransport) {
		t.Fatalf("unexpected transport kind")
	}
	if IsKind(errors.New("x"), KindParse) {
		t.Fatalf("plain error must not match")
	}
}

func TestConfig_UnwrapsToSentinel(t *testing.T) {
	err := Config("gemini", ErrMissingCredential)
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected sentinel in chain")
	}
	if !strings.Contains(err.Error(), "config gemini") {
		t.Fatalf("message=%q", err.Error())
	}
}
