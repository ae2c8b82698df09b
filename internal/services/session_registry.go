package services

import (
	"sync"
	"time"

	"allchat/internal/llm"
)

// AssistantSession is one admin's in-progress settings-assistant chat.
// Sessions live in memory only; an evicted session simply starts fresh.
type AssistantSession struct {
	History    []llm.Turn
	LastActive time.Time
}

// SessionRegistry tracks assistant sessions keyed by (tenant, user) and
// evicts idle ones.
type SessionRegistry struct {
	ttl      time.Duration
	mu       sync.Mutex
	sessions map[string]*AssistantSession
}

// NewSessionRegistry creates a registry with the given idle TTL.
func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionRegistry{
		ttl:      ttl,
		sessions: map[string]*AssistantSession{},
	}
}

func sessionKey(tenantID, userID string) string {
	return tenantID + "/" + userID
}

// Get returns the live session for the pair, creating one if absent or if
// the existing session has gone idle past the TTL.
func (r *SessionRegistry) Get(tenantID, userID string) *AssistantSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey(tenantID, userID)
	sess, ok := r.sessions[key]
	if !ok || time.Since(sess.LastActive) > r.ttl {
		sess = &AssistantSession{}
		r.sessions[key] = sess
	}
	sess.LastActive = time.Now()
	return sess
}

// Append records one exchange on the session.
func (r *SessionRegistry) Append(tenantID, userID string, turns ...llm.Turn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey(tenantID, userID)
	sess, ok := r.sessions[key]
	if !ok {
		sess = &AssistantSession{}
		r.sessions[key] = sess
	}
	sess.History = append(sess.History, turns...)
	sess.LastActive = time.Now()
}

// Reset drops the session so the next message starts a fresh chat.
func (r *SessionRegistry) Reset(tenantID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionKey(tenantID, userID))
}

// EvictIdle removes sessions idle past the TTL and returns how many were
// dropped. Runs on the background scheduler.
func (r *SessionRegistry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	cutoff := time.Now().Add(-r.ttl)
	for key, sess := range r.sessions {
		if sess.LastActive.Before(cutoff) {
			delete(r.sessions, key)
			evicted++
		}
	}
	return evicted
}

// Count returns the number of live sessions.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
