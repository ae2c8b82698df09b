package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"allchat/internal/database"
	"allchat/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrUserNotFound indicates no user document matched the lookup.
var ErrUserNotFound = errors.New("user not found")

// UserService manages dashboard user accounts.
type UserService struct {
	db *database.MongoDB
}

// NewUserService creates a new user service.
func NewUserService(db *database.MongoDB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) collection() *mongo.Collection {
	return s.db.Collection(database.CollectionUsers)
}

// GetByID returns the user with the given id, or ErrUserNotFound.
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.collection().FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &user, nil
}

// GetByEmail returns the user with the given email, or ErrUserNotFound.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.collection().FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// Create inserts a new user. The email unique index rejects duplicates.
func (s *UserService) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Tenants == nil {
		user.Tenants = map[string]string{}
	}

	if _, err := s.collection().InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("email already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GrantTenantRole stores the user's role within a tenant.
func (s *UserService) GrantTenantRole(ctx context.Context, userID, tenantID, role string) error {
	_, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{
			"tenants." + tenantID: role,
			"updatedAt":           time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to grant tenant role: %w", err)
	}
	return nil
}
