package services

import (
	"strings"
	"testing"
)

func TestRetrieveKnowledgeMatchesChunksByKeyword(t *testing.T) {
	kb := "A cats are friendly.###B dogs need walks."

	result := RetrieveKnowledge(kb, "tell me about cats")

	if !strings.Contains(result, "cats are friendly") {
		t.Errorf("expected cats chunk to be retrieved, got: %q", result)
	}
	if strings.Contains(result, "dogs") {
		t.Errorf("unrelated chunk should not be retrieved, got: %q", result)
	}
}

func TestRetrieveKnowledgeMultipleChunks(t *testing.T) {
	kb := "Standard shipping is free over $50.###Express shipping costs $10.###We sell plants."

	result := RetrieveKnowledge(kb, "what about shipping costs")

	if !strings.Contains(result, "free over $50") || !strings.Contains(result, "Express shipping") {
		t.Errorf("expected both shipping chunks, got: %q", result)
	}
	if strings.Contains(result, "plants") {
		t.Errorf("plants chunk should not match, got: %q", result)
	}
}

func TestRetrieveKnowledgeNoMatch(t *testing.T) {
	kb := "We sell handmade pottery.###Open weekends only."

	result := RetrieveKnowledge(kb, "do you have bicycles?")

	if result != NoRelevantKnowledge {
		t.Errorf("expected placeholder for no match, got: %q", result)
	}
}

func TestRetrieveKnowledgeEmptyBase(t *testing.T) {
	if got := RetrieveKnowledge("", "anything at all"); got != NoRelevantKnowledge {
		t.Errorf("expected placeholder for empty knowledge base, got: %q", got)
	}
}

func TestRetrieveKnowledgeCaseSensitive(t *testing.T) {
	kb := "Shipping takes three days."

	// Lowercase "shipping" must not match the capitalized chunk text.
	if got := RetrieveKnowledge(kb, "shipping"); got != NoRelevantKnowledge {
		t.Errorf("matching is case-sensitive, got: %q", got)
	}
	if got := RetrieveKnowledge(kb, "Shipping"); got != "Shipping takes three days." {
		t.Errorf("exact-case keyword should match, got: %q", got)
	}
}

func TestRetrieveKnowledgeShortTokensIgnored(t *testing.T) {
	kb := "An apple a day.###Bananas are yellow."

	// Two-rune tokens are below the keyword length floor.
	if got := RetrieveKnowledge(kb, "An ap da"); got != NoRelevantKnowledge {
		t.Errorf("short tokens must not match, got: %q", got)
	}
}
