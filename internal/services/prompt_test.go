package services

import (
	"fmt"
	"strings"
	"testing"

	"allchat/internal/models"
)

func TestBehavioralInstructionsToggles(t *testing.T) {
	cfg := &models.TenantConfig{
		IsDetailedResponse: true,
		IsSweetTone:        false,
		ShowEmpathy:        false,
		HighSalesDrive:     true,
	}

	block := BehavioralInstructions(cfg)

	for _, want := range []string{instructionDetailed, instructionWitty, instructionSales} {
		if !strings.Contains(block, want) {
			t.Errorf("expected line %q in block:\n%s", want, block)
		}
	}
	for _, wantAbsent := range []string{instructionConcise, instructionSweet, instructionEmpathy, instructionInform} {
		if strings.Contains(block, wantAbsent) {
			t.Errorf("unexpected line %q in block:\n%s", wantAbsent, block)
		}
	}
}

func TestBehavioralInstructionsEmpathyIsAdditive(t *testing.T) {
	withEmpathy := BehavioralInstructions(&models.TenantConfig{ShowEmpathy: true})
	without := BehavioralInstructions(&models.TenantConfig{})

	if !strings.Contains(withEmpathy, instructionEmpathy) {
		t.Error("empathy line missing when toggle is on")
	}
	if strings.Contains(without, instructionEmpathy) {
		t.Error("empathy toggle off must contribute no line at all")
	}
	if len(strings.Split(withEmpathy, "\n")) != len(strings.Split(without, "\n"))+1 {
		t.Error("empathy should add exactly one line")
	}
}

func TestComposePromptSections(t *testing.T) {
	cfg := &models.TenantConfig{BotPersona: "You are Mint, a florist's assistant."}

	prompt := ComposePrompt(cfg, "Roses cost $5.", "how much are roses?")

	for _, want := range []string{
		"You are Mint, a florist's assistant.",
		headerBehavior,
		headerKnowledge,
		"Roses cost $5.",
		headerQuestion,
		"how much are roses?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	// Sections must appear in order.
	if strings.Index(prompt, headerBehavior) > strings.Index(prompt, headerKnowledge) ||
		strings.Index(prompt, headerKnowledge) > strings.Index(prompt, headerQuestion) {
		t.Errorf("prompt sections out of order:\n%s", prompt)
	}
}

func TestComposePromptDefaultPersona(t *testing.T) {
	prompt := ComposePrompt(&models.TenantConfig{}, NoRelevantKnowledge, "hi")
	if !strings.HasPrefix(prompt, DefaultPersona) {
		t.Errorf("expected default persona prefix, got:\n%s", prompt)
	}
}

func cleanHistory(n int) []models.Message {
	var history []models.Message
	for i := 0; i < n; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleModel
		}
		history = append(history, models.NewTextMessage(role, fmt.Sprintf("msg-%d", i), ""))
	}
	return history
}

func TestRecentCleanWindowBound(t *testing.T) {
	window := RecentCleanWindow(cleanHistory(20))

	if len(window) != RecentMessagesToKeep {
		t.Fatalf("expected %d entries, got %d", RecentMessagesToKeep, len(window))
	}
	if window[0].Text() != "msg-16" || window[3].Text() != "msg-19" {
		t.Errorf("expected the last four entries in order, got %q..%q", window[0].Text(), window[3].Text())
	}
}

func TestRecentCleanWindowExcludesErrorEntries(t *testing.T) {
	history := cleanHistory(6)
	history[4].Status = models.StatusRequiresReview

	window := RecentCleanWindow(history)

	// The window is sliced first, then filtered: the error entry shrinks it
	// to three instead of pulling in msg-1.
	if len(window) != 3 {
		t.Fatalf("expected 3 entries after filtering, got %d", len(window))
	}
	for _, msg := range window {
		if msg.IsErrorEntry() {
			t.Errorf("error entry leaked into model-visible history: %+v", msg)
		}
		if msg.Text() == "msg-1" {
			t.Error("filtering must not backfill older entries")
		}
	}
}

func TestModelVisibleHistoryWithSummary(t *testing.T) {
	turns := ModelVisibleHistory("User likes tulips.", cleanHistory(2))

	if len(turns) != 4 {
		t.Fatalf("expected preamble pair + 2 history turns, got %d", len(turns))
	}
	if turns[0].Role != models.RoleUser || !strings.Contains(turns[0].Text, "User likes tulips.") {
		t.Errorf("summary preamble malformed: %+v", turns[0])
	}
	if turns[1].Role != models.RoleModel {
		t.Errorf("preamble ack should be a model turn: %+v", turns[1])
	}
}

func TestModelVisibleHistoryNoSummary(t *testing.T) {
	turns := ModelVisibleHistory("", cleanHistory(2))
	if len(turns) != 2 {
		t.Fatalf("expected no preamble without summary, got %d turns", len(turns))
	}
}
