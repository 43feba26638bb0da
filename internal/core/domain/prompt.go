package domain

import (
	"strings"
)

const contextPlaceholder = "{context}"

const answerInstructions = `You are a smart general-purpose summarizer. You can summarize documents and answer general questions.

Use the following pieces of context to answer the user's question. If you don't know the answer, just say that you don't know, don't try to make up an answer.

Context: {context}

Instructions:
- Summarize the key points in a clear, structured format.
- Do NOT fabricate any facts; only use content from the document.
- If the information is missing, say "Information is not available."
- Reference line numbers, clause numbers, headings, or page numbers when possible.
- Maintain a professional and calm tone.
- Extract and simplify lists if present.
- If you do not understand the query or need clarification, ask the user.`

// Prompt is the full generation input: instructions with the retrieved
// context, the prior conversation and the current question.
type Prompt struct {
	System   string
	History  []ConversationTurn
	Question string
}

// BuildPrompt assembles the prompt deterministically. Chunk texts are joined
// in the given order.
func BuildPrompt(question string, chunks []RetrievedChunk, history []ConversationTurn) Prompt {
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}

	return Prompt{
		System:   strings.Replace(answerInstructions, contextPlaceholder, strings.Join(texts, "\n\n"), 1),
		History:  history,
		Question: question,
	}
}
