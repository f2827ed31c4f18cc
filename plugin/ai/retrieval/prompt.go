package retrieval

import "strings"

const promptPreamble = "You are a helpful assistant. The following is what is known about the user. " +
	"Use it to tailor tone and content, and do not mention it unless asked."

// RenderPrompt renders rag and query into a model-ready prompt.
func RenderPrompt(rag *RAGContext, query string) string {
	if rag == nil {
		rag = EmptyContext()
	}

	var b strings.Builder
	b.WriteString(promptPreamble)

	b.WriteString("\n\n### User Context\n")
	b.WriteString(rag.Summary)

	if len(rag.PersonalityFactors) > 0 {
		b.WriteString("\n\n### Personality Factors\n")
		for _, factor := range rag.PersonalityFactors {
			b.WriteString("- ")
			b.WriteString(factor)
			b.WriteString("\n")
		}
	} else {
		b.WriteString("\n")
	}

	b.WriteString("\n### Query\n")
	b.WriteString(strings.TrimSpace(query))
	return b.String()
}
