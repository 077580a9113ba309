package workflow

import (
	"fmt"
	"regexp"
	"strings"
)

// QuestionOption is one selectable answer to a clarification question.
type QuestionOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is a follow-up the agent asked during ask or plan.
type Question struct {
	ID      string           `json:"question_id"`
	Text    string           `json:"text"`
	Options []QuestionOption `json:"options"`
}

var (
	questionLine = regexp.MustCompile(`^\s*(?:[#>]+\s*)?(?:\*\*)?(\d+)[.)]\s+(.+\?)\s*(?:\*\*)?\s*$`)
	optionLine   = regexp.MustCompile(`^\s*(?:[-*]\s+)?\(?([A-Ha-h])[).:]\s+(.+?)\s*$`)
	headingLine  = regexp.MustCompile(`^\s*#{1,6}\s+\S`)
	stepLine     = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s+\S`)
)

// ExtractQuestions finds numbered questions ending in '?' and the lettered
// options listed directly beneath them.
func ExtractQuestions(text string) []Question {
	var (
		questions []Question
		current   *Question
	)
	for _, line := range strings.Split(text, "\n") {
		if m := questionLine.FindStringSubmatch(line); m != nil {
			questions = append(questions, Question{
				ID:      fmt.Sprintf("q%d", len(questions)+1),
				Text:    strings.Trim(strings.TrimSpace(m[2]), "*"),
				Options: []QuestionOption{},
			})
			current = &questions[len(questions)-1]
			continue
		}
		if current == nil {
			continue
		}
		if m := optionLine.FindStringSubmatch(line); m != nil {
			current.Options = append(current.Options, QuestionOption{
				Label: strings.ToUpper(m[1]),
				Text:  m[2],
			})
			continue
		}
		if strings.TrimSpace(line) != "" {
			current = nil
		}
	}
	return questions
}

// OnlyQuestions reports whether text is nothing but a clarification block:
// questions were found and there is no heading or plain list step that would
// make it a plan in its own right.
func OnlyQuestions(text string, questions []Question) bool {
	if len(questions) == 0 {
		return false
	}
	for _, line := range strings.Split(text, "\n") {
		if headingLine.MatchString(line) {
			return false
		}
		if stepLine.MatchString(line) && !questionLine.MatchString(line) && !optionLine.MatchString(line) {
			return false
		}
	}
	return true
}
