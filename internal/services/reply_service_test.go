package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"allchat/internal/llm"
	"allchat/internal/models"
)

type fakeTenants struct {
	tenants map[string]*models.TenantConfig
	err     error
}

func (f *fakeTenants) Get(_ context.Context, tenantID string) (*models.TenantConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	cfg, ok := f.tenants[tenantID]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return cfg, nil
}

type fakeConversations struct {
	rec       models.ConversationRecord
	getErr    error
	putErr    error
	putCalls  int
	lastPut   *models.ConversationRecord
	appended  []models.Message
	appendErr error
}

func (f *fakeConversations) Get(_ context.Context, _, _ string) (*models.ConversationRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec := f.rec
	return &rec, nil
}

func (f *fakeConversations) Put(_ context.Context, _, _ string, rec *models.ConversationRecord) error {
	f.putCalls++
	f.lastPut = rec
	return f.putErr
}

func (f *fakeConversations) AppendError(_ context.Context, _, _ string, entry models.Message) error {
	f.appended = append(f.appended, entry)
	return f.appendErr
}

type fakePrimary struct {
	calls   int
	history [][]llm.Turn
	prompts []string
	fn      func(history []llm.Turn, message string) (string, error)
}

func (f *fakePrimary) Chat(_ context.Context, history []llm.Turn, message string) (string, error) {
	f.calls++
	f.history = append(f.history, history)
	f.prompts = append(f.prompts, message)
	return f.fn(history, message)
}

type fakeSecondary struct {
	calls    int
	messages [][]llm.ChatMessage
	fn       func(messages []llm.ChatMessage) (string, error)
}

func (f *fakeSecondary) Complete(_ context.Context, messages []llm.ChatMessage) (string, error) {
	f.calls++
	f.messages = append(f.messages, messages)
	return f.fn(messages)
}

func okPrimary(reply string) *fakePrimary {
	return &fakePrimary{fn: func([]llm.Turn, string) (string, error) { return reply, nil }}
}

func failingPrimary() *fakePrimary {
	return &fakePrimary{fn: func([]llm.Turn, string) (string, error) { return "", errors.New("primary down") }}
}

func okSecondary(reply string) *fakeSecondary {
	return &fakeSecondary{fn: func([]llm.ChatMessage) (string, error) { return reply, nil }}
}

func failingSecondary() *fakeSecondary {
	return &fakeSecondary{fn: func([]llm.ChatMessage) (string, error) { return "", errors.New("secondary down") }}
}

func testTenants() *fakeTenants {
	return &fakeTenants{tenants: map[string]*models.TenantConfig{
		"t1": {ID: "t1", BotPersona: "You are a florist.", KnowledgeBase: "Roses cost $5.###Tulips cost $3."},
	}}
}

func testRequest() ReplyRequest {
	return ReplyRequest{TenantID: "t1", UserID: "u1", UserInput: "how much are Roses", Platform: models.PlatformWeb}
}

func TestGenerateReplySuccess(t *testing.T) {
	primary := okPrimary("Roses are $5 each.")
	convs := &fakeConversations{}
	svc := NewReplyService(testTenants(), convs, llm.NewRegistry(primary, okSecondary("unused")), nil)

	reply := svc.GenerateReply(context.Background(), testRequest())

	if reply != "Roses are $5 each." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if primary.calls != 1 {
		t.Errorf("expected 1 primary call, got %d", primary.calls)
	}
	if convs.putCalls != 1 {
		t.Fatalf("expected exactly one terminal write, got %d", convs.putCalls)
	}

	history := convs.lastPut.History
	if len(history) != 2 {
		t.Fatalf("expected user+model entries persisted, got %d", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Text() != "how much are Roses" {
		t.Errorf("user entry malformed: %+v", history[0])
	}
	if history[1].Role != models.RoleModel || history[1].Text() != "Roses are $5 each." {
		t.Errorf("model entry malformed: %+v", history[1])
	}
	if len(convs.appended) != 0 {
		t.Errorf("no error entries expected on success, got %d", len(convs.appended))
	}

	// The composed prompt carries the persona and only the matching chunk.
	prompt := primary.prompts[0]
	if !strings.Contains(prompt, "You are a florist.") || !strings.Contains(prompt, "Roses cost $5.") {
		t.Errorf("prompt missing persona or knowledge:\n%s", prompt)
	}
	if strings.Contains(prompt, "Tulips") {
		t.Errorf("unmatched chunk leaked into prompt:\n%s", prompt)
	}
}

func TestGenerateReplyMissingTenant(t *testing.T) {
	primary := okPrimary("never")
	secondary := okSecondary("never")
	convs := &fakeConversations{}
	svc := NewReplyService(testTenants(), convs, llm.NewRegistry(primary, secondary), nil)

	req := testRequest()
	req.TenantID = "nope"
	reply := svc.GenerateReply(context.Background(), req)

	if reply != apologyNoProvider {
		t.Errorf("expected no-provider apology, got %q", reply)
	}
	if primary.calls != 0 || secondary.calls != 0 {
		t.Errorf("no model calls expected, got primary=%d secondary=%d", primary.calls, secondary.calls)
	}
	if convs.putCalls != 0 || len(convs.appended) != 0 {
		t.Error("missing tenant must not write anything")
	}
}

func TestGenerateReplyInitFailure(t *testing.T) {
	convs := &fakeConversations{}
	svc := NewReplyService(&fakeTenants{err: errors.New("db down")}, convs, llm.NewRegistry(okPrimary("never"), nil), nil)

	reply := svc.GenerateReply(context.Background(), testRequest())

	if reply != apologyInit {
		t.Errorf("expected init apology, got %q", reply)
	}
	if len(convs.appended) != 1 {
		t.Fatalf("expected one error entry, got %d", len(convs.appended))
	}
	entry := convs.appended[0]
	if entry.FailureType != models.FailureInitialization || entry.Status != models.StatusRequiresManualReply {
		t.Errorf("error entry malformed: %+v", entry)
	}
	if entry.Text() != "how much are Roses" {
		t.Errorf("error entry must keep the user's text, got %q", entry.Text())
	}
}

func TestGenerateReplyFallback(t *testing.T) {
	primary := failingPrimary()
	secondary := okSecondary("ok")
	convs := &fakeConversations{rec: models.ConversationRecord{
		Summary: "User likes tulips.",
		History: []models.Message{
			{Role: models.RoleUser, Parts: []models.MessagePart{{Text: "earlier"}}, Summarized: true},
			{Role: models.RoleModel, Parts: []models.MessagePart{{Text: "noted"}}, Summarized: true},
		},
	}}
	svc := NewReplyService(testTenants(), convs, llm.NewRegistry(primary, secondary), nil)

	reply := svc.GenerateReply(context.Background(), testRequest())

	if reply != "ok" {
		t.Fatalf("expected fallback reply, got %q", reply)
	}
	if secondary.calls != 1 {
		t.Fatalf("expected one fallback call, got %d", secondary.calls)
	}

	last := convs.lastPut.History[len(convs.lastPut.History)-1]
	if last.Role != models.RoleModel || last.Text() != "ok" || last.IsErrorEntry() {
		t.Errorf("persisted tail should be the fallback reply: %+v", last)
	}

	// Fallback message shape: system summary first, roles reshaped to
	// user/assistant, composed prompt as the final user message.
	msgs := secondary.messages[0]
	if msgs[0].Role != llm.ChatRoleSystem || !strings.Contains(msgs[0].Content, "User likes tulips.") {
		t.Errorf("expected summary as system message, got %+v", msgs[0])
	}
	for _, m := range msgs {
		if m.Role == models.RoleModel {
			t.Errorf("role %q must be reshaped for the fallback provider", m.Role)
		}
	}
	final := msgs[len(msgs)-1]
	if final.Role != llm.ChatRoleUser || !strings.Contains(final.Content, "how much are Roses") {
		t.Errorf("final message must be the composed prompt as a user turn: %+v", final)
	}
	foundAssistant := false
	for _, m := range msgs {
		if m.Role == llm.ChatRoleAssistant && m.Content == "noted" {
			foundAssistant = true
		}
	}
	if !foundAssistant {
		t.Error("model-role history entry should appear as an assistant message")
	}
}

func TestGenerateReplyFullFailure(t *testing.T) {
	convs := &fakeConversations{}
	svc := NewReplyService(testTenants(), convs, llm.NewRegistry(failingPrimary(), failingSecondary()), nil)

	reply := svc.GenerateReply(context.Background(), testRequest())

	if reply != apologyOutage {
		t.Errorf("expected outage apology, got %q", reply)
	}
	if convs.putCalls != 1 {
		t.Fatalf("failed turns still perform the terminal write, got %d", convs.putCalls)
	}
	history := convs.lastPut.History
	if len(history) != 1 {
		t.Fatalf("expected only the error entry persisted, got %d entries", len(history))
	}
	entry := history[0]
	if entry.FailureType != models.FailureFullFallback {
		t.Errorf("expected full_fallback_failed, got %q", entry.FailureType)
	}
	if entry.Status != models.StatusRequiresManualReply {
		t.Errorf("expected requires_manual_reply, got %q", entry.Status)
	}
	if entry.Role != models.RoleUser || entry.Text() != "how much are Roses" {
		t.Errorf("error entry keeps the user's text under the user role: %+v", entry)
	}
}

func TestHardFailureKeepsFreshSummary(t *testing.T) {
	// Summarization succeeds, then both providers fail on the reply. The
	// terminal write must still carry the new summary and the sweep flags.
	primary := &fakePrimary{}
	primary.fn = func([]llm.Turn, string) (string, error) {
		if primary.calls == 1 {
			return "fresh summary", nil
		}
		return "", errors.New("primary down")
	}

	convs := &fakeConversations{rec: models.ConversationRecord{History: unsummarizedHistory(11)}}
	svc := NewReplyService(testTenants(), convs, llm.NewRegistry(primary, failingSecondary()), nil)

	reply := svc.GenerateReply(context.Background(), testRequest())

	if reply != apologyOutage {
		t.Fatalf("expected outage apology, got %q", reply)
	}
	if convs.putCalls != 1 {
		t.Fatalf("expected one terminal write, got %d", convs.putCalls)
	}
	if convs.lastPut.Summary != "fresh summary" {
		t.Errorf("fresh summary lost on the hard-failure path, got %q", convs.lastPut.Summary)
	}
	history := convs.lastPut.History
	if len(history) != 12 {
		t.Fatalf("expected 11 swept entries plus the error entry, got %d", len(history))
	}
	for i, msg := range history[:11] {
		if !msg.Summarized {
			t.Errorf("entry %d not marked summarized after sweep", i)
		}
	}
	if last := history[11]; last.FailureType != models.FailureFullFallback {
		t.Errorf("expected full_fallback_failed tail entry, got %+v", last)
	}
}

func TestGenerateReplyNoProvidersConfigured(t *testing.T) {
	convs := &fakeConversations{}
	svc := NewReplyService(testTenants(), convs, llm.NewRegistry(nil, nil), nil)

	if reply := svc.GenerateReply(context.Background(), testRequest()); reply != apologyOutage {
		t.Errorf("expected outage apology with no providers, got %q", reply)
	}
}

func TestGenerateReplyPersistFailureStillReplies(t *testing.T) {
	convs := &fakeConversations{putErr: errors.New("write refused")}
	svc := NewReplyService(testTenants(), convs, llm.NewRegistry(okPrimary("hello"), nil), nil)

	if reply := svc.GenerateReply(context.Background(), testRequest()); reply != "hello" {
		t.Errorf("persist failure must not swallow the reply, got %q", reply)
	}
}

func unsummarizedHistory(n int) []models.Message {
	var history []models.Message
	for i := 0; i < n; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleModel
		}
		history = append(history, models.NewTextMessage(role, "old talk", ""))
	}
	return history
}

func TestSummarizationTriggersAboveThreshold(t *testing.T) {
	primary := &fakePrimary{}
	primary.fn = func(history []llm.Turn, message string) (string, error) {
		if primary.calls == 1 {
			// First call is the summarizer: fresh session, no prior turns.
			if history != nil {
				t.Errorf("summarizer must run in a fresh session, got %d turns", len(history))
			}
			if !strings.Contains(message, "NEW MESSAGES TO ADD TO SUMMARY:") {
				t.Errorf("unexpected summarizer prompt:\n%s", message)
			}
			return "fresh summary", nil
		}
		return "answer", nil
	}

	convs := &fakeConversations{rec: models.ConversationRecord{History: unsummarizedHistory(11)}}
	svc := NewReplyService(testTenants(), convs, llm.NewRegistry(primary, nil), nil)

	reply := svc.GenerateReply(context.Background(), testRequest())

	if reply != "answer" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if primary.calls != 2 {
		t.Fatalf("expected summarizer + reply calls, got %d", primary.calls)
	}
	if convs.lastPut.Summary != "fresh summary" {
		t.Errorf("summary not replaced, got %q", convs.lastPut.Summary)
	}

	// Every pre-existing entry is swept as summarized; only the new turn
	// remains unsummarized.
	for i, msg := range convs.lastPut.History[:11] {
		if !msg.Summarized {
			t.Errorf("entry %d not marked summarized after sweep", i)
		}
	}
}

func TestSummarizationNotTriggeredAtThreshold(t *testing.T) {
	primary := okPrimary("answer")
	convs := &fakeConversations{rec: models.ConversationRecord{History: unsummarizedHistory(10)}}
	svc := NewReplyService(testTenants(), convs, llm.NewRegistry(primary, nil), nil)

	svc.GenerateReply(context.Background(), testRequest())

	if primary.calls != 1 {
		t.Errorf("exactly 10 unsummarized messages must not trigger summarization, got %d calls", primary.calls)
	}
}

func TestSummarizationFailureIsNonFatal(t *testing.T) {
	primary := &fakePrimary{}
	primary.fn = func(_ []llm.Turn, message string) (string, error) {
		if primary.calls == 1 {
			return "", errors.New("summarizer choked")
		}
		return "answer", nil
	}

	convs := &fakeConversations{rec: models.ConversationRecord{History: unsummarizedHistory(11)}}
	svc := NewReplyService(testTenants(), convs, llm.NewRegistry(primary, nil), nil)

	reply := svc.GenerateReply(context.Background(), testRequest())

	if reply != "answer" {
		t.Fatalf("summarization failure must not abort the turn, got %q", reply)
	}

	// The error entry rides the in-memory record into the terminal write;
	// a mid-turn push would be clobbered by the full-record replace.
	if len(convs.appended) != 0 {
		t.Fatalf("summarization failures must not write mid-turn, got %d pushes", len(convs.appended))
	}
	history := convs.lastPut.History
	if len(history) != 14 {
		t.Fatalf("expected 11 old + error + user + model entries, got %d", len(history))
	}
	var entries []models.Message
	for _, msg := range history {
		if msg.FailureType != "" {
			entries = append(entries, msg)
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one persisted error entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.FailureType != models.FailureSummarization || entry.Status != models.StatusRequiresReview {
		t.Errorf("error entry malformed: %+v", entry)
	}
	if entry.Text() != "how much are Roses" {
		t.Errorf("error entry must keep the user's text, got %q", entry.Text())
	}
}

func TestSummarizationSweepIncludesErrorEntries(t *testing.T) {
	// An error entry counts toward the unsummarized threshold like anything
	// else, so a successful sweep has to flag it or it inflates the count on
	// every later turn.
	history := unsummarizedHistory(11)
	history = append(history, models.Message{
		Role:         models.RoleUser,
		Parts:        []models.MessagePart{{Text: "lost question"}},
		Status:       models.StatusRequiresManualReply,
		FailureType:  models.FailureFullFallback,
		ErrorDetails: "primary down",
	})

	primary := &fakePrimary{}
	primary.fn = func([]llm.Turn, string) (string, error) {
		if primary.calls == 1 {
			return "fresh summary", nil
		}
		return "answer", nil
	}
	convs := &fakeConversations{rec: models.ConversationRecord{History: history}}
	svc := NewReplyService(testTenants(), convs, llm.NewRegistry(primary, nil), nil)

	svc.GenerateReply(context.Background(), testRequest())

	swept := convs.lastPut.History[:12]
	for i, msg := range swept {
		if !msg.Summarized {
			t.Errorf("entry %d (failureType=%q) not marked summarized after sweep", i, msg.FailureType)
		}
	}
}

func TestFallbackKeepsUserMessageResemblingPreamble(t *testing.T) {
	// A genuine user message that happens to start like the synthetic summary
	// preamble must still reach the fallback provider.
	collision := "Summary of previous conversation:\nthat is what my boss asked me for"
	convs := &fakeConversations{rec: models.ConversationRecord{
		Summary: "User is compiling a report.",
		History: []models.Message{
			{Role: models.RoleUser, Parts: []models.MessagePart{{Text: collision}}, Summarized: true},
			{Role: models.RoleModel, Parts: []models.MessagePart{{Text: "understood"}}, Summarized: true},
		},
	}}
	secondary := okSecondary("ok")
	svc := NewReplyService(testTenants(), convs, llm.NewRegistry(failingPrimary(), secondary), nil)

	if reply := svc.GenerateReply(context.Background(), testRequest()); reply != "ok" {
		t.Fatalf("expected fallback reply, got %q", reply)
	}

	found := false
	for _, m := range secondary.messages[0] {
		if m.Role == llm.ChatRoleUser && m.Content == collision {
			found = true
		}
	}
	if !found {
		t.Errorf("user message was dropped from the fallback request:\n%+v", secondary.messages[0])
	}
}
