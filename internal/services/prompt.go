package services

import (
	"strings"

	"allchat/internal/llm"
	"allchat/internal/models"
)

// RecentMessagesToKeep bounds how many trailing history entries the model sees.
const RecentMessagesToKeep = 4

// DefaultPersona is used when a tenant has not configured a persona yet.
const DefaultPersona = "You are a helpful AI assistant."

// Behavioral instruction lines selected by tenant toggles.
const (
	instructionDetailed = "- Answer thoroughly and provide complete information."
	instructionConcise  = "- Keep answers short, concise, and to the point."
	instructionSweet    = "- Use a sweet, polite tone and compliment the customer where appropriate."
	instructionWitty    = "- Feel free to work in light humor and use a cool, modern voice."
	instructionEmpathy  = "- Show genuine care for the customer's problems and check in on them with warmth."
	instructionSales    = "- Consistently look for openings to close a sale; suggest related products or services to encourage a decision."
	instructionInform   = "- Focus on giving useful information and clear answers without pressuring the customer to buy."
)

// Prompt section headers.
const (
	headerBehavior  = "--- Additional Instructions and Personality ---"
	headerKnowledge = "--- Reference Information ---"
	headerQuestion  = "--- Latest Question ---"
)

// BehavioralInstructions renders the instruction block for a tenant's toggles.
// Each toggle picks one of two fixed lines, except ShowEmpathy which only
// contributes a line when enabled.
func BehavioralInstructions(cfg *models.TenantConfig) string {
	var lines []string

	if cfg.IsDetailedResponse {
		lines = append(lines, instructionDetailed)
	} else {
		lines = append(lines, instructionConcise)
	}

	if cfg.IsSweetTone {
		lines = append(lines, instructionSweet)
	} else {
		lines = append(lines, instructionWitty)
	}

	if cfg.ShowEmpathy {
		lines = append(lines, instructionEmpathy)
	}

	if cfg.HighSalesDrive {
		lines = append(lines, instructionSales)
	} else {
		lines = append(lines, instructionInform)
	}

	return strings.Join(lines, "\n")
}

// ComposePrompt assembles the final prompt sent as the new user turn:
// persona + behavioral block, the retrieved knowledge, and the literal user
// message, each under its own labeled section.
func ComposePrompt(cfg *models.TenantConfig, retrievedKnowledge, userInput string) string {
	persona := cfg.BotPersona
	if persona == "" {
		persona = DefaultPersona
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n" + headerBehavior + "\n")
	b.WriteString(BehavioralInstructions(cfg))
	b.WriteString("\n\n" + headerKnowledge + "\n")
	b.WriteString(retrievedKnowledge)
	b.WriteString("\n\n" + headerQuestion + "\n")
	b.WriteString(userInput)
	return b.String()
}

// RecentCleanWindow returns the model-visible tail of history: the last
// RecentMessagesToKeep entries, minus any synthetic error entries. The window
// is sliced before filtering, so an error marker inside the tail shrinks the
// visible window rather than pulling in an older entry.
func RecentCleanWindow(history []models.Message) []models.Message {
	start := len(history) - RecentMessagesToKeep
	if start < 0 {
		start = 0
	}

	var clean []models.Message
	for _, msg := range history[start:] {
		if !msg.IsErrorEntry() {
			clean = append(clean, msg)
		}
	}
	return clean
}

const (
	summaryPreamblePrefix = "Summary of previous conversation:\n"
	summaryAckText        = "OK, I understand the context."
)

// SummaryPreamble renders the rolling summary as a synthetic user/model
// exchange so session-style providers accept it as prior turns.
func SummaryPreamble(summary string) []llm.Turn {
	if summary == "" {
		return nil
	}
	return []llm.Turn{
		{Role: models.RoleUser, Text: summaryPreamblePrefix + summary},
		{Role: models.RoleModel, Text: summaryAckText},
	}
}

// ModelVisibleHistory builds the primary provider's turn list: the summary
// preamble followed by the recent clean window.
func ModelVisibleHistory(summary string, history []models.Message) []llm.Turn {
	turns := SummaryPreamble(summary)
	for _, msg := range RecentCleanWindow(history) {
		turns = append(turns, llm.Turn{Role: msg.Role, Text: msg.Text()})
	}
	return turns
}
