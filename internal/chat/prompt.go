package chat

import (
	"fmt"
	"strings"
)

const tutorSystemPrompt = `You are a friendly AI tutor teaching machine learning to adults. Answer the learner's question clearly and briefly, using the pacing notes below to adjust depth, language and examples.`

const evaluateSystemPrompt = `You are checking a learner's answer to a machine learning exercise. Start your reply with CORRECT or INCORRECT, then give one or two sentences of feedback.`

const reviewSystemPrompt = `You write short review questions for a machine learning course. The learner's mastery of the concept is low, so the question should rebuild understanding rather than trick.`

// buildSystem appends the topic and adaptive context to a base prompt.
func buildSystem(base, topic, adaptiveContext string) string {
	var b strings.Builder
	b.WriteString(base)
	if topic != "" {
		fmt.Fprintf(&b, "\n\nCurrent topic: %s", topic)
	}
	if adaptiveContext != "" {
		b.WriteString("\n\nAbout the learner:\n")
		b.WriteString(adaptiveContext)
	}
	return b.String()
}

func buildEvaluateMessage(challenge, response string) string {
	return fmt.Sprintf("Exercise:\n%s\n\nLearner's answer:\n%s", challenge, response)
}

func buildReviewMessage(in ReviewInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Concept: %s\n", in.ConceptName)
	fmt.Fprintf(&b, "Current mastery: %.0f/100\n", in.Mastery)
	if in.LessonTitle != "" {
		fmt.Fprintf(&b, "Lesson: %s\n", in.LessonTitle)
	}
	b.WriteString(`
Instructions:
1. Ask one question that checks the core idea of the concept.
2. Give the expected answer in one or two sentences.
3. Give a hint that points the way without revealing the answer.
4. Use plain text. No LaTeX.`)
	return b.String()
}
