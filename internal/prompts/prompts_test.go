package prompts

import (
	"strings"
	"testing"
)

func TestAskWithoutHistory(t *testing.T) {
	got := Ask("What does main.go do?", nil)
	if !strings.HasPrefix(got, "Do NOT create, modify, or delete any files.") {
		t.Fatalf("missing read-only prefix: %q", got)
	}
	if !strings.HasSuffix(got, "\n\nWhat does main.go do?") {
		t.Fatalf("message not appended: %q", got)
	}
}

func TestAskWithHistory(t *testing.T) {
	got := Ask("and tests?", []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	for _, want := range []string{"Previous conversation:", "[User]: hi", "[Assistant]: hello", "Current message: and tests?"} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestPlanIncludesConstraintsAndSortedAnswers(t *testing.T) {
	got := Plan("add login", []string{"no new deps", "keep API"}, map[string]string{"q2": "B", "q1": "A"}, nil)
	want := strings.Join([]string{
		"Create a detailed implementation plan for: add login",
		"Include: Goal, Files to create/modify, Step-by-step implementation, and Commands to run.",
		"Constraints: no new deps, keep API",
		"Answers to prior questions:\n  q1: A\n  q2: B",
	}, "\n")
	if got != want {
		t.Fatalf("Plan() =\n%s\nwant\n%s", got, want)
	}
}

func TestExecute(t *testing.T) {
	if got := Execute("# Plan"); got != "Implement this plan exactly:\n\n# Plan" {
		t.Fatalf("Execute() = %q", got)
	}
}
