package ai

import (
	"fmt"

	"github.com/sciencelab/sciencelab-lms/internal/experiment"
)

const draftSystemPrompt = "You are an expert educator. Generate high-quality multiple choice questions."

func draftUserPrompt(exp experiment.Experiment, n int) string {
	return fmt.Sprintf(`Generate exactly %d multiple choice quiz questions about the following experiment:

Experiment: %s
Description: %s

Return the questions as a JSON array with this exact structure:
[
  {
    "question": "Question text here?",
    "options": [
      { "text": "Option 1", "is_correct": false },
      { "text": "Option 2", "is_correct": true },
      { "text": "Option 3", "is_correct": false },
      { "text": "Option 4", "is_correct": false }
    ]
  }
]

Requirements:
- Each question must have exactly 4 options
- Exactly one option must be marked as is_correct: true
- Questions should test understanding of the experiment
- Return ONLY valid JSON, no other text`, n, exp.Name, exp.Explanation)
}

func tutorSystemPrompt(exp experiment.Experiment) string {
	return fmt.Sprintf(`You are a helpful AI tutor for a high school science experiment learning platform. The student is learning about the %q experiment.

Experiment context:
%s

Provide clear, concise answers to help students understand.`, exp.Name, exp.Explanation)
}

const summarySystemPrompt = "You are an expert science educator. Summarize video transcripts into brief, easy-to-understand explanations for high school students."

func summaryUserPrompt(transcript string) string {
	return "Summarize the following video transcript into a brief, easy-to-understand explanation for a high school student. " +
		"Focus on the experiment's objective, procedure, and conclusion.\n\nTranscript:\n" + transcript
}
