// Package prompts builds the prompt text handed to the agent. The agent
// enforces read-only behaviour through its --mode flag, so prompts stay short.
package prompts

import (
	"fmt"
	"sort"
	"strings"
)

const askPrefix = "Do NOT create, modify, or delete any files. Only answer questions and ask clarifying questions.\n\n"

// Message is one prior exchange in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func formatHistory(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	lines := []string{"Previous conversation:"}
	for _, msg := range history {
		prefix := "Assistant"
		if msg.Role == "user" {
			prefix = "User"
		}
		lines = append(lines, fmt.Sprintf("[%s]: %s", prefix, msg.Content))
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// Ask builds the prompt for a read-only question.
func Ask(message string, history []Message) string {
	if context := formatHistory(history); context != "" {
		return askPrefix + context + "\nCurrent message: " + message
	}
	return askPrefix + message
}

// Plan builds the prompt for plan generation. Answers are emitted sorted by
// question id so prompts are deterministic.
func Plan(objective string, constraints []string, answers map[string]string, history []Message) string {
	var parts []string
	if context := formatHistory(history); context != "" {
		parts = append(parts, context)
	}

	parts = append(parts, "Create a detailed implementation plan for: "+objective)
	parts = append(parts, "Include: Goal, Files to create/modify, Step-by-step implementation, and Commands to run.")

	if len(constraints) > 0 {
		parts = append(parts, "Constraints: "+strings.Join(constraints, ", "))
	}

	if len(answers) > 0 {
		ids := make([]string, 0, len(answers))
		for id := range answers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		lines := make([]string, 0, len(ids))
		for _, id := range ids {
			lines = append(lines, fmt.Sprintf("  %s: %s", id, answers[id]))
		}
		parts = append(parts, "Answers to prior questions:\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n")
}

// Execute builds the prompt that asks the agent to implement an approved plan.
func Execute(planMarkdown string) string {
	return "Implement this plan exactly:\n\n" + planMarkdown
}
