package rag

import (
	"fmt"
	"strings"

	"github.com/bull/pdf-rag-server/internal/chunker"
	"github.com/bull/pdf-rag-server/internal/index"
)

// ChunkDelimiter separates chunks in the assembled context.
const ChunkDelimiter = "\n\n---\n\n"

// NoResultsAnswer is returned when retrieval finds nothing.
const NoResultsAnswer = "I couldn't find relevant information in the document to answer your question."

const instructionTemplate = `You are a helpful assistant that answers questions about a document using the context provided below.

Follow these rules:
1. Read all of the context before answering.
2. Answer ONLY from the information in the context. Do not use outside knowledge.
3. If the context does not contain enough information, say what you can answer and state clearly what is missing.
4. Mention page numbers when you use information from a page, for example "(page 3)".
5. Give thorough answers when the question asks for detail. Use bullet points or numbered lists where they help.

Context from the document:
%s`

// BuildContext joins hits in rank order, each headed by its page label.
func BuildContext(hits []index.Hit) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("[Page %s]\n%s", chunker.PageLabel(h.Page), h.Text)
	}
	return strings.Join(parts, ChunkDelimiter)
}

// BuildInstructions embeds context into the system instructions.
func BuildInstructions(docContext string) string {
	return fmt.Sprintf(instructionTemplate, docContext)
}

func unconfiguredAnswer(docContext string, limit int) string {
	return "**Answer generation is not configured.** Here is the relevant context from the document:\n\n" +
		truncate(docContext, limit) +
		"\n\n---\n*Configure a language model to enable generated answers.*"
}

func errorAnswer(err error, docContext string, limit int) string {
	return fmt.Sprintf("**Error generating answer:** %v\n\nRelevant context:\n%s", err, truncate(docContext, limit))
}

// snippet returns the first n characters of text followed by an ellipsis.
func snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}

// truncate shortens text to n characters, marking the cut with an ellipsis.
func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
