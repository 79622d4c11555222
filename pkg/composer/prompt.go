package composer

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/docqa/pkg/chunker"
)

const (
	// DefaultProduct names the documentation the assistant answers for.
	DefaultProduct = "the Garden SDK React Quickstart"

	// DefaultDocsURL is the canonical documentation link given when the
	// context cannot answer a question.
	DefaultDocsURL = "https://docs.garden.finance/"
)

// Turn is one prior exchange of a conversation.
type Turn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// FoldHistory serializes history as labeled lines in chronological order
// followed by the new query. With no history the query is returned as is.
func FoldHistory(history []Turn, query string) string {
	if len(history) == 0 {
		return query
	}

	var b strings.Builder
	for _, t := range history {
		if t.User != "" {
			fmt.Fprintf(&b, "User: %s\n", t.User)
		}
		if t.Assistant != "" {
			fmt.Fprintf(&b, "Assistant: %s\n", t.Assistant)
		}
	}
	b.WriteString("User: ")
	b.WriteString(query)
	return b.String()
}

// JoinContext concatenates chunk texts with blank lines between them.
func JoinContext(chunks []chunker.Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}

// SystemPrompt binds the model to the documentation context. The fallback
// instruction must name docsURL verbatim.
func SystemPrompt(product, docsURL, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert assistant for %s. ", product)
	b.WriteString("Answer the user's question using only the documentation context below. ")
	b.WriteString("Answer in detail, including all code blocks, multi-step instructions, and important notes relevant to the question. ")
	b.WriteString("If this is a follow-up, use the previous questions and answers too. ")
	b.WriteString("Format your answer using markdown. If the answer requires a sequence, enumerate the steps. ")
	fmt.Fprintf(&b, "If the answer cannot be formed from the documentation context, reply that you don't know the answer and show the link %s . ", docsURL)
	b.WriteString("Never make up an answer.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(context)
	return b.String()
}
