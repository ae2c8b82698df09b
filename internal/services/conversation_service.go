package services

import (
	"context"
	"fmt"
	"time"

	"allchat/internal/database"
	"allchat/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fieldAdminLastSeen must match the bson tag on
// models.ConversationRecord.AdminLastSeen; ListByTenant derives unread state
// from the value MarkAsRead writes under this key.
const fieldAdminLastSeen = "adminLastSeenTimestamp"

// conversationDoc is the persisted shape of a conversation: the tenant/user
// key pair plus the record itself, flattened into one document.
type conversationDoc struct {
	TenantID                  string `bson:"tenantId"`
	UserID                    string `bson:"userId"`
	models.ConversationRecord `bson:",inline"`
}

// ConversationService stores per-user conversation records.
type ConversationService struct {
	db *database.MongoDB
}

// NewConversationService creates a new conversation service.
func NewConversationService(db *database.MongoDB) *ConversationService {
	return &ConversationService{db: db}
}

func (s *ConversationService) collection() *mongo.Collection {
	return s.db.Collection(database.CollectionChatSessions)
}

// Get loads a conversation record. An absent document is a normal first
// contact and comes back as an empty record, not an error.
func (s *ConversationService) Get(ctx context.Context, tenantID, userID string) (*models.ConversationRecord, error) {
	var doc conversationDoc
	err := s.collection().FindOne(ctx, bson.M{"tenantId": tenantID, "userId": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return &models.ConversationRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %s/%s: %w", tenantID, userID, err)
	}
	return &doc.ConversationRecord, nil
}

// Put replaces the full conversation record in one write, creating the
// document if it does not exist yet.
func (s *ConversationService) Put(ctx context.Context, tenantID, userID string, rec *models.ConversationRecord) error {
	doc := conversationDoc{
		TenantID:           tenantID,
		UserID:             userID,
		ConversationRecord: *rec,
	}
	_, err := s.collection().ReplaceOne(ctx,
		bson.M{"tenantId": tenantID, "userId": userID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to persist conversation %s/%s: %w", tenantID, userID, err)
	}
	return nil
}

// AppendError pushes a single error entry onto the history without touching
// the rest of the record. Upserts so failures on first contact still leave a
// trace for the review queue.
func (s *ConversationService) AppendError(ctx context.Context, tenantID, userID string, entry models.Message) error {
	_, err := s.collection().UpdateOne(ctx,
		bson.M{"tenantId": tenantID, "userId": userID},
		bson.M{
			"$push":        bson.M{"history": entry},
			"$set":         bson.M{"lastMessageTime": entry.Timestamp},
			"$setOnInsert": bson.M{"summary": ""},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to append error entry %s/%s: %w", tenantID, userID, err)
	}
	return nil
}

// AppendAdminMessage pushes a human-agent reply onto the history.
func (s *ConversationService) AppendAdminMessage(ctx context.Context, tenantID, userID string, entry models.Message) error {
	_, err := s.collection().UpdateOne(ctx,
		bson.M{"tenantId": tenantID, "userId": userID},
		bson.M{
			"$push": bson.M{"history": entry},
			"$set":  bson.M{"lastMessageTime": entry.Timestamp},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to append admin message %s/%s: %w", tenantID, userID, err)
	}
	return nil
}

// MergeProfile updates the end user's display profile fields without
// rewriting the history. Empty values are skipped.
func (s *ConversationService) MergeProfile(ctx context.Context, tenantID, userID, displayName, pictureURL, platform string) error {
	set := bson.M{}
	if displayName != "" {
		set["displayName"] = displayName
	}
	if pictureURL != "" {
		set["pictureUrl"] = pictureURL
	}
	if platform != "" {
		set["platform"] = platform
	}
	if len(set) == 0 {
		return nil
	}

	_, err := s.collection().UpdateOne(ctx,
		bson.M{"tenantId": tenantID, "userId": userID},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to merge profile %s/%s: %w", tenantID, userID, err)
	}
	return nil
}

// ListByTenant returns the tenant's conversations ordered by most recent
// activity, shaped for the inbox list view.
func (s *ConversationService) ListByTenant(ctx context.Context, tenantID string, limit int64) ([]models.ConversationListItem, error) {
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "lastMessageTime", Value: -1}}).
		SetLimit(limit).
		SetProjection(bson.M{"history": bson.M{"$slice": -1}})

	cursor, err := s.collection().Find(ctx, bson.M{"tenantId": tenantID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations for %s: %w", tenantID, err)
	}
	defer cursor.Close(ctx)

	items := []models.ConversationListItem{}
	for cursor.Next(ctx) {
		var doc conversationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode conversation doc: %w", err)
		}

		item := models.ConversationListItem{
			UserID:          doc.UserID,
			DisplayName:     doc.DisplayName,
			PictureURL:      doc.PictureURL,
			Platform:        doc.Platform,
			LastMessageTime: doc.LastMessageTime,
			Unread:          doc.LastMessageTime > doc.AdminLastSeen,
		}
		if len(doc.History) > 0 {
			last := doc.History[len(doc.History)-1]
			item.LastMessage = last.Text()
			item.NeedsAttention = last.IsErrorEntry()
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations for %s: %w", tenantID, err)
	}
	return items, nil
}

// MarkAsRead records the moment an admin viewed the conversation. Unread
// state is derived by comparing timestamps, so this is the only write.
func (s *ConversationService) MarkAsRead(ctx context.Context, tenantID, userID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.collection().UpdateOne(ctx,
		bson.M{"tenantId": tenantID, "userId": userID},
		bson.M{"$set": bson.M{fieldAdminLastSeen: now}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark conversation read %s/%s: %w", tenantID, userID, err)
	}
	return nil
}
