package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"sync"
	"time"

	"allchat/internal/llm"
	"allchat/internal/logging"
	"allchat/internal/models"
)

// SummarizationThreshold is the number of unsummarized messages that
// triggers a summary refresh before the next reply.
const SummarizationThreshold = 10

// Canned replies for the degraded paths. The pipeline never surfaces raw
// errors to end users; it always answers with one of these.
const (
	apologyNoProvider = "Sorry, we could not find this service provider. Please check the link or QR code you used."
	apologyInit       = "Sorry, the system is temporarily unavailable. Please try again in a moment."
	apologyOutage     = "Sorry, the system is having trouble responding right now. A staff member will get back to you as soon as possible."
)

const summarizationInstruction = "You are a conversation summarizer. Condense the previous summary and the new messages below into a single concise summary that preserves names, facts, preferences, and unresolved questions. Reply with the summary text only."

// TenantStore supplies tenant configuration to the pipeline.
type TenantStore interface {
	Get(ctx context.Context, tenantID string) (*models.TenantConfig, error)
}

// ConversationStore persists conversation records for the pipeline.
type ConversationStore interface {
	Get(ctx context.Context, tenantID, userID string) (*models.ConversationRecord, error)
	Put(ctx context.Context, tenantID, userID string, rec *models.ConversationRecord) error
	AppendError(ctx context.Context, tenantID, userID string, entry models.Message) error
}

// ReplyRequest carries one inbound end-user turn through the pipeline.
type ReplyRequest struct {
	TenantID        string
	UserID          string
	UserInput       string
	Platform        string
	DisplayName     string
	LastMessageTime string // event timestamp; defaults to now when empty
}

// ReplyService runs the full turn pipeline: load state, summarize when due,
// retrieve knowledge, compose the prompt, call the model with fallback, and
// persist the outcome. GenerateReply always returns text for the end user.
type ReplyService struct {
	tenants       TenantStore
	conversations ConversationStore
	registry      *llm.Registry
	metrics       *Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewReplyService creates the reply pipeline. metrics may be nil.
func NewReplyService(tenants TenantStore, conversations ConversationStore, registry *llm.Registry, metrics *Metrics) *ReplyService {
	return &ReplyService{
		tenants:       tenants,
		conversations: conversations,
		registry:      registry,
		metrics:       metrics,
		locks:         map[string]*sync.Mutex{},
	}
}

// turnLock returns the mutex serializing turns for one (tenant, user) pair.
// Concurrent webhook deliveries for the same user otherwise race on the
// read-modify-write of the conversation record.
func (s *ReplyService) turnLock(tenantID, userID string) *sync.Mutex {
	key := tenantID + "/" + userID
	s.mu.Lock()
	defer s.mu.Unlock()
	lk, ok := s.locks[key]
	if !ok {
		lk = &sync.Mutex{}
		s.locks[key] = lk
	}
	return lk
}

// GenerateReply processes one end-user turn and returns the reply text.
// It never returns an error: every failure mode degrades to a canned
// apology, with the failure recorded in the conversation history for the
// human review queue.
func (s *ReplyService) GenerateReply(ctx context.Context, req ReplyRequest) string {
	start := time.Now()
	logger := logging.WithTurn(req.TenantID, req.UserID, req.Platform)

	lk := s.turnLock(req.TenantID, req.UserID)
	lk.Lock()
	defer lk.Unlock()

	// --- Initialization: tenant config and conversation state ---

	cfg, err := s.tenants.Get(ctx, req.TenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			// Unknown tenant is a routing mistake, not an incident. No
			// error entry is written because there is no tenant to review it.
			logger.Warn("reply for unknown tenant")
			return apologyNoProvider
		}
		logger.Error("tenant lookup failed", "error", err)
		s.recordFailure(ctx, req, models.FailureInitialization, err)
		return apologyInit
	}

	rec, err := s.conversations.Get(ctx, req.TenantID, req.UserID)
	if err != nil {
		logger.Error("conversation load failed", "error", err)
		s.recordFailure(ctx, req, models.FailureInitialization, err)
		return apologyInit
	}

	ts := req.LastMessageTime
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}

	// --- Summarization: refresh the rolling summary when enough new
	// messages have accumulated. Failure here is non-fatal: the error entry
	// goes onto the in-memory history so the terminal write carries it. ---

	if len(rec.Unsummarized()) > SummarizationThreshold && s.registry.Primary() != nil {
		if err := s.summarize(ctx, rec); err != nil {
			logger.Warn("summarization failed, continuing turn", "error", err)
			rec.History = append(rec.History, newErrorEntry(req.UserInput, models.FailureSummarization, err))
		} else if s.metrics != nil {
			s.metrics.Summarizations.Inc()
		}
	}

	// --- Composition: knowledge retrieval and the final prompt ---

	retrieved := RetrieveKnowledge(cfg.KnowledgeBase, req.UserInput)
	prompt := ComposePrompt(cfg, retrieved, req.UserInput)
	cleanWindow := RecentCleanWindow(rec.History)
	modelHistory := ModelVisibleHistory(rec.Summary, rec.History)

	// --- Generation: primary model, then fallback, then apology ---

	reply, genErr := s.generate(ctx, logger, modelHistory, cleanWindow, rec.Summary, prompt)
	if genErr != nil {
		logger.Error("all providers failed", "error", genErr)
		if s.metrics != nil {
			s.metrics.HardFailures.Inc()
		}
		// A summarization that succeeded earlier in this turn still has to
		// reach the store, so the failed turn performs the terminal write
		// too, with the error entry standing in for the exchange.
		rec.History = append(rec.History, newErrorEntry(req.UserInput, models.FailureFullFallback, genErr))
		s.persist(ctx, logger, req, rec, ts)
		return apologyOutage
	}

	// --- Persistence: append the turn and write the full record once ---

	rec.History = append(rec.History,
		models.NewTextMessage(models.RoleUser, req.UserInput, ts),
		models.NewTextMessage(models.RoleModel, reply, time.Now().UTC().Format(time.RFC3339)),
	)
	s.persist(ctx, logger, req, rec, ts)

	if s.metrics != nil {
		s.metrics.RepliesTotal.WithLabelValues(req.Platform).Inc()
		s.metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}
	log.Printf("💬 [REPLY] tenant=%s user=%s platform=%s took=%s", req.TenantID, req.UserID, req.Platform, time.Since(start).Round(time.Millisecond))
	return reply
}

// persist performs the turn's single terminal write of the whole record.
// Failure is logged only; the user already has their answer composed.
func (s *ReplyService) persist(ctx context.Context, logger *slog.Logger, req ReplyRequest, rec *models.ConversationRecord, ts string) {
	rec.LastMessageTime = ts
	if req.DisplayName != "" {
		rec.DisplayName = req.DisplayName
	}
	if rec.Platform == "" {
		rec.Platform = req.Platform
	}

	if err := s.conversations.Put(ctx, req.TenantID, req.UserID, rec); err != nil {
		logger.Error("conversation persist failed", "error", err)
	}
}

// summarize condenses all unsummarized history into the rolling summary.
// On success every message currently in the record is flagged summarized.
func (s *ReplyService) summarize(ctx context.Context, rec *models.ConversationRecord) error {
	primary := s.registry.Primary()
	if primary == nil {
		return errors.New("no primary provider configured")
	}

	var lines strings.Builder
	for _, msg := range rec.Unsummarized() {
		fmt.Fprintf(&lines, "%s: %s\n", msg.Role, msg.Text())
	}

	prompt := fmt.Sprintf("%s\n\nPREVIOUS SUMMARY:\n%s\n\n---\n\nNEW MESSAGES TO ADD TO SUMMARY:\n%s",
		summarizationInstruction, rec.Summary, lines.String())

	// Fresh model session: the summarizer must not see the live chat context.
	summary, err := primary.Chat(ctx, nil, prompt)
	if err != nil {
		return err
	}

	rec.Summary = strings.TrimSpace(summary)
	// Blanket sweep: error entries get flagged too, otherwise they would
	// count toward the threshold forever.
	for i := range rec.History {
		rec.History[i].Summarized = true
	}
	return nil
}

// generate asks the primary model for a reply, falling back to the secondary
// on any primary failure. Returns an error only when no provider answered.
func (s *ReplyService) generate(ctx context.Context, logger *slog.Logger, history []llm.Turn, window []models.Message, summary, prompt string) (string, error) {
	primary := s.registry.Primary()
	if primary != nil {
		reply, err := primary.Chat(ctx, history, prompt)
		if err == nil {
			return reply, nil
		}
		logger.Warn("primary provider failed, trying fallback", "error", err)
	} else {
		logger.Warn("no primary provider configured, trying fallback")
	}

	secondary := s.registry.Secondary()
	if secondary == nil {
		return "", errors.New("primary failed and no fallback provider configured")
	}

	if s.metrics != nil {
		s.metrics.FallbackActivations.Inc()
	}

	reply, err := secondary.Complete(ctx, fallbackMessages(window, summary, prompt))
	if err != nil {
		return "", fmt.Errorf("fallback provider failed: %w", err)
	}
	return reply, nil
}

// fallbackMessages builds the chat-completions request from the clean recent
// window: the summary becomes a system message, "model" turns become
// "assistant", and the composed prompt is the final user turn. Working from
// the stored window rather than the primary-model view means the synthetic
// summary preamble never appears here, and genuine user text is never
// mistaken for it.
func fallbackMessages(window []models.Message, summary, prompt string) []llm.ChatMessage {
	msgs := []llm.ChatMessage{}
	if summary != "" {
		msgs = append(msgs, llm.ChatMessage{
			Role:    llm.ChatRoleSystem,
			Content: "Summary of previous conversation: " + summary,
		})
	}
	for _, msg := range window {
		role := llm.ChatRoleUser
		if msg.Role == models.RoleModel {
			role = llm.ChatRoleAssistant
		}
		msgs = append(msgs, llm.ChatMessage{Role: role, Content: msg.Text()})
	}
	msgs = append(msgs, llm.ChatMessage{Role: llm.ChatRoleUser, Content: prompt})
	return msgs
}

// recordFailure appends an error entry best-effort; initialization failures
// may not even have a working store to write to.
func (s *ReplyService) recordFailure(ctx context.Context, req ReplyRequest, failureType string, cause error) {
	if s.metrics != nil {
		s.metrics.HardFailures.Inc()
	}
	entry := newErrorEntry(req.UserInput, failureType, cause)
	if err := s.conversations.AppendError(ctx, req.TenantID, req.UserID, entry); err != nil {
		log.Printf("⚠️ [REPLY] failed to record %s for %s/%s: %v", failureType, req.TenantID, req.UserID, err)
	}
}

// newErrorEntry builds the history entry documenting a failed turn. The
// entry keeps the user's original text so a human agent can answer it later.
func newErrorEntry(userInput, failureType string, cause error) models.Message {
	status := models.StatusRequiresReview
	switch failureType {
	case models.FailureFullFallback, models.FailureCoreLogic, models.FailureInitialization:
		status = models.StatusRequiresManualReply
	}
	return models.Message{
		Role:         models.RoleUser,
		Parts:        []models.MessagePart{{Text: userInput}},
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Status:       status,
		FailureType:  failureType,
		ErrorDetails: cause.Error(),
	}
}
