package services

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = 24 * time.Hour

// DedupService suppresses duplicate webhook deliveries (platform retries and
// redeliveries) using Redis SETNX. Redis is optional: a nil *DedupService is
// a no-op that treats every event as first-seen.
type DedupService struct {
	client *redis.Client
}

// NewDedupService creates a dedup service over the given Redis client.
func NewDedupService(client *redis.Client) *DedupService {
	return &DedupService{client: client}
}

// FirstSeen reports whether this event id has not been processed before,
// atomically claiming it. Fails open: if Redis errors, the event processes.
func (s *DedupService) FirstSeen(ctx context.Context, platform, eventID string) bool {
	if s == nil || s.client == nil || eventID == "" {
		return true
	}

	key := "webhook:seen:" + platform + ":" + eventID
	ok, err := s.client.SetNX(ctx, key, 1, dedupTTL).Result()
	if err != nil {
		log.Printf("⚠️ [DEDUP] redis check failed for %s: %v", key, err)
		return true
	}
	return ok
}
