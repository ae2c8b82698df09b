package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"allchat/internal/database"
	"allchat/internal/models"

	gocache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrTenantNotFound indicates the tenant document does not exist. This is a
// hard failure for the reply pipeline; no fallback persona substitutes for a
// missing tenant.
var ErrTenantNotFound = errors.New("tenant not found")

const tenantCacheTTL = 30 * time.Second

// TenantService reads and writes tenant configuration documents.
// Reads go through a short-lived in-process cache since webhook traffic
// re-reads the same tenant on every event.
type TenantService struct {
	db    *database.MongoDB
	cache *gocache.Cache
}

// NewTenantService creates a new tenant service.
func NewTenantService(db *database.MongoDB) *TenantService {
	return &TenantService{
		db:    db,
		cache: gocache.New(tenantCacheTTL, time.Minute),
	}
}

func (s *TenantService) collection() *mongo.Collection {
	return s.db.Collection(database.CollectionTenants)
}

// Get returns a tenant's configuration, or ErrTenantNotFound.
func (s *TenantService) Get(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	if cached, ok := s.cache.Get(tenantID); ok {
		cfg := cached.(models.TenantConfig)
		return &cfg, nil
	}

	var cfg models.TenantConfig
	err := s.collection().FindOne(ctx, bson.M{"_id": tenantID}).Decode(&cfg)
	if err == mongo.ErrNoDocuments {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant %s: %w", tenantID, err)
	}

	s.cache.SetDefault(tenantID, cfg)
	return &cfg, nil
}

// Create inserts a new tenant document.
func (s *TenantService) Create(ctx context.Context, cfg *models.TenantConfig) error {
	now := time.Now()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	if cfg.Status == "" {
		cfg.Status = "active"
	}

	if _, err := s.collection().InsertOne(ctx, cfg); err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of req to the tenant document.
func (s *TenantService) Update(ctx context.Context, tenantID string, req *models.TenantUpdateRequest) error {
	set := bson.M{"updatedAt": time.Now()}

	setString := func(key string, v *string) {
		if v != nil {
			set[key] = *v
		}
	}
	setBool := func(key string, v *bool) {
		if v != nil {
			set[key] = *v
		}
	}

	setString("tenantName", req.TenantName)
	setString("businessType", req.BusinessType)
	setString("chatbotName", req.ChatbotName)
	setString("welcomeMessage", req.WelcomeMessage)
	setString("botPersona", req.BotPersona)
	setString("knowledgeBase", req.KnowledgeBase)
	setString("lineAccessToken", req.LineAccessToken)
	setString("facebookPageToken", req.FacebookPageToken)
	setString("facebookVerifyToken", req.FacebookVerifyToken)
	setBool("isDetailedResponse", req.IsDetailedResponse)
	setBool("isSweetTone", req.IsSweetTone)
	setBool("showEmpathy", req.ShowEmpathy)
	setBool("highSalesDrive", req.HighSalesDrive)

	return s.setFields(ctx, tenantID, set)
}

// SetPersona updates the bot persona. Used by the settings assistant.
func (s *TenantService) SetPersona(ctx context.Context, tenantID, persona string) error {
	return s.setFields(ctx, tenantID, bson.M{"botPersona": persona, "updatedAt": time.Now()})
}

// SetKnowledgeBase replaces the knowledge base. Used by the settings assistant.
func (s *TenantService) SetKnowledgeBase(ctx context.Context, tenantID, knowledge string) error {
	return s.setFields(ctx, tenantID, bson.M{"knowledgeBase": knowledge, "updatedAt": time.Now()})
}

// SetChatbotName updates the chatbot display name.
func (s *TenantService) SetChatbotName(ctx context.Context, tenantID, name string) error {
	return s.setFields(ctx, tenantID, bson.M{"chatbotName": name, "updatedAt": time.Now()})
}

// SetWelcomeMessage updates the chat widget welcome message.
func (s *TenantService) SetWelcomeMessage(ctx context.Context, tenantID, message string) error {
	return s.setFields(ctx, tenantID, bson.M{"welcomeMessage": message, "updatedAt": time.Now()})
}

func (s *TenantService) setFields(ctx context.Context, tenantID string, set bson.M) error {
	res, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": tenantID},
		bson.M{"$set": set},
		options.Update().SetUpsert(false),
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant %s: %w", tenantID, err)
	}
	if res.MatchedCount == 0 {
		return ErrTenantNotFound
	}

	s.cache.Delete(tenantID)
	return nil
}
