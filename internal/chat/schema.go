package chat

import "github.com/abhisek/aitutor/internal/llm"

// ReviewSchema is the structured reply for review questions.
var ReviewSchema = &llm.Schema{
	Name:        "review-question",
	Description: "A short review question for a weak concept",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The question, one or two sentences",
			},
			"answer": map[string]any{
				"type":        "string",
				"description": "The expected answer",
			},
			"hint": map[string]any{
				"type":        "string",
				"description": "A nudge that does not give the answer away",
			},
			"difficulty": map[string]any{
				"type": "string",
				"enum": []any{"easy", "medium", "hard"},
			},
		},
		"required":             []any{"question", "answer", "hint", "difficulty"},
		"additionalProperties": false,
	},
}
