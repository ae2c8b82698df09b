package services

import (
	"context"
	"fmt"
	"strings"

	"allchat/internal/llm"
	"allchat/internal/models"
)

const assistantPersona = "You are a setup assistant for a business chatbot dashboard. Help the owner refine their bot's persona, welcome message, and knowledge base. Answer in the owner's language, keep replies short, and suggest concrete wording they can apply with the slash commands: /persona <text>, /knowledge <text>, /name <text>, /welcome <text>."

const assistantHelp = `Commands:
/persona <text> - set the bot's persona
/knowledge <text> - replace the knowledge base
/name <text> - set the chatbot's display name
/welcome <text> - set the chat widget welcome message
/reset - start this assistant chat over

Anything else is a normal chat message; ask me for wording suggestions.`

// AssistantService powers the dashboard's settings assistant: slash commands
// apply tenant settings directly, everything else goes to the model with the
// session's chat context.
type AssistantService struct {
	tenants  *TenantService
	registry *llm.Registry
	sessions *SessionRegistry
}

// NewAssistantService creates the settings assistant.
func NewAssistantService(tenants *TenantService, registry *llm.Registry, sessions *SessionRegistry) *AssistantService {
	return &AssistantService{tenants: tenants, registry: registry, sessions: sessions}
}

// Handle processes one assistant message from a tenant admin and returns the
// assistant's reply.
func (s *AssistantService) Handle(ctx context.Context, tenantID, adminUserID, message string) (string, error) {
	trimmed := strings.TrimSpace(message)
	if strings.HasPrefix(trimmed, "/") {
		return s.handleCommand(ctx, tenantID, adminUserID, trimmed)
	}
	return s.chat(ctx, tenantID, adminUserID, trimmed)
}

func (s *AssistantService) handleCommand(ctx context.Context, tenantID, adminUserID, input string) (string, error) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	needsArg := func(usage string) (string, bool) {
		if arg == "" {
			return "Usage: " + usage, false
		}
		return "", true
	}

	switch strings.ToLower(cmd) {
	case "/help":
		return assistantHelp, nil

	case "/reset":
		s.sessions.Reset(tenantID, adminUserID)
		return "Assistant chat reset. What would you like to work on?", nil

	case "/persona":
		if msg, ok := needsArg("/persona <text>"); !ok {
			return msg, nil
		}
		if err := s.tenants.SetPersona(ctx, tenantID, arg); err != nil {
			return "", fmt.Errorf("failed to set persona: %w", err)
		}
		return "Persona updated.", nil

	case "/knowledge":
		if msg, ok := needsArg("/knowledge <text>"); !ok {
			return msg, nil
		}
		if err := s.tenants.SetKnowledgeBase(ctx, tenantID, arg); err != nil {
			return "", fmt.Errorf("failed to set knowledge base: %w", err)
		}
		return "Knowledge base replaced.", nil

	case "/name":
		if msg, ok := needsArg("/name <text>"); !ok {
			return msg, nil
		}
		if err := s.tenants.SetChatbotName(ctx, tenantID, arg); err != nil {
			return "", fmt.Errorf("failed to set chatbot name: %w", err)
		}
		return "Chatbot name updated.", nil

	case "/welcome":
		if msg, ok := needsArg("/welcome <text>"); !ok {
			return msg, nil
		}
		if err := s.tenants.SetWelcomeMessage(ctx, tenantID, arg); err != nil {
			return "", fmt.Errorf("failed to set welcome message: %w", err)
		}
		return "Welcome message updated.", nil

	default:
		return "Unknown command. " + assistantHelp, nil
	}
}

func (s *AssistantService) chat(ctx context.Context, tenantID, adminUserID, message string) (string, error) {
	primary := s.registry.Primary()
	if primary == nil {
		return "", fmt.Errorf("no model provider configured")
	}

	sess := s.sessions.Get(tenantID, adminUserID)

	history := make([]llm.Turn, 0, len(sess.History)+2)
	history = append(history,
		llm.Turn{Role: models.RoleUser, Text: assistantPersona},
		llm.Turn{Role: models.RoleModel, Text: "Understood. I'm ready to help with the chatbot setup."},
	)
	history = append(history, sess.History...)

	reply, err := primary.Chat(ctx, history, message)
	if err != nil {
		return "", fmt.Errorf("assistant chat failed: %w", err)
	}

	s.sessions.Append(tenantID, adminUserID,
		llm.Turn{Role: models.RoleUser, Text: message},
		llm.Turn{Role: models.RoleModel, Text: reply},
	)
	return reply, nil
}
