package services

import (
	"strings"
	"unicode/utf8"
)

// KnowledgeChunkSeparator delimits chunks inside a tenant's knowledge base.
const KnowledgeChunkSeparator = "###"

// NoRelevantKnowledge is substituted when no chunk matches the user's input.
const NoRelevantKnowledge = "No directly relevant information is available."

// minKeywordLength filters out short tokens ("a", "is", "to") before matching.
const minKeywordLength = 3

// RetrieveKnowledge selects knowledge-base chunks relevant to the user input.
//
// The filter is a deliberately naive lexical one: the input is split on
// whitespace, tokens shorter than three runes are discarded, and a chunk is
// kept when any surviving token appears in it as a literal, case-sensitive
// substring. No stemming, no normalization, no ranking. Matching chunks are
// joined with a blank line; when nothing matches, a fixed placeholder is
// returned so the prompt always carries a reference section.
func RetrieveKnowledge(knowledgeBase, userInput string) string {
	keywords := keywordTokens(userInput)

	var relevant []string
	for _, chunk := range strings.Split(knowledgeBase, KnowledgeChunkSeparator) {
		for _, kw := range keywords {
			if strings.Contains(chunk, kw) {
				relevant = append(relevant, strings.TrimSpace(chunk))
				break
			}
		}
	}

	if len(relevant) == 0 {
		return NoRelevantKnowledge
	}
	return strings.Join(relevant, "\n\n")
}

// keywordTokens splits input on whitespace and keeps tokens of at least
// minKeywordLength runes.
func keywordTokens(input string) []string {
	var out []string
	for _, tok := range strings.Fields(input) {
		if utf8.RuneCountInString(tok) >= minKeywordLength {
			out = append(out, tok)
		}
	}
	return out
}
