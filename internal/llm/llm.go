package llm

import (
	"context"
	"sync"
)

// Chat roles used by the fallback provider's message format.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// Turn is one model-visible exchange entry in the primary provider's format.
// Role is "user" or "model".
type Turn struct {
	Role string
	Text string
}

// ChatMessage is one message in the fallback provider's chat-completions format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PrimaryModel is a multi-turn conversational model.
type PrimaryModel interface {
	// Chat sends message as a fresh user turn on top of history and returns
	// the model's reply text.
	Chat(ctx context.Context, history []Turn, message string) (string, error)
}

// SecondaryModel is a chat-completion model used only when the primary fails.
type SecondaryModel interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// Registry holds the current provider handles behind a lock so the providers
// file watcher can swap them at runtime.
type Registry struct {
	mu        sync.RWMutex
	primary   PrimaryModel
	secondary SecondaryModel
}

// NewRegistry creates a registry with the given providers. Either may be nil
// when not configured.
func NewRegistry(primary PrimaryModel, secondary SecondaryModel) *Registry {
	return &Registry{primary: primary, secondary: secondary}
}

// Primary returns the current primary model, or nil if unconfigured.
func (r *Registry) Primary() PrimaryModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.primary
}

// Secondary returns the current fallback model, or nil if unconfigured.
func (r *Registry) Secondary() SecondaryModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.secondary
}

// Swap replaces both provider handles atomically.
func (r *Registry) Swap(primary PrimaryModel, secondary SecondaryModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.primary = primary
	r.secondary = secondary
}
