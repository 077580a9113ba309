package workflow

import "testing"

func TestExtractQuestions(t *testing.T) {
	text := `I need a couple of details.

**1. Which database should the service use?**
   A) Postgres
   B) SQLite

2. Should existing tests be kept?

Steps:
3. Create the handler.
`
	got := ExtractQuestions(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d: %+v", len(got), got)
	}
	if got[0].ID != "q1" || got[0].Text != "Which database should the service use?" {
		t.Fatalf("first question = %+v", got[0])
	}
	if len(got[0].Options) != 2 || got[0].Options[1].Label != "B" || got[0].Options[1].Text != "SQLite" {
		t.Fatalf("first question options = %+v", got[0].Options)
	}
	if got[1].ID != "q2" || len(got[1].Options) != 0 {
		t.Fatalf("second question = %+v", got[1])
	}
}

func TestExtractQuestionsNone(t *testing.T) {
	if got := ExtractQuestions("# Plan\n\n1. Add a route.\n2. Write tests."); len(got) != 0 {
		t.Fatalf("expected no questions, got %+v", got)
	}
}

func TestOnlyQuestions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"questions block", "Before I plan this:\n1. Should we keep v1?\n   A) yes\n   B) no\n", true},
		{"plan with risk question", "# Plan\n\n## Risks\n1. Will the migration lock the users table?\n", false},
		{"steps and question", "1. Add the route.\n2. Is the cache needed?\n", false},
		{"no questions", "Nothing to ask.", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := OnlyQuestions(tc.text, ExtractQuestions(tc.text)); got != tc.want {
				t.Fatalf("OnlyQuestions() = %v, want %v", got, tc.want)
			}
		})
	}
}
