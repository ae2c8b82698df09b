package models

import "time"

// User is a dashboard user (tenant admin/agent), not an end customer.
type User struct {
	ID           string            `bson:"_id,omitempty" json:"id"`
	Email        string            `bson:"email" json:"email"`
	PasswordHash string            `bson:"passwordHash" json:"-"`
	DisplayName  string            `bson:"displayName,omitempty" json:"displayName,omitempty"`
	Tenants      map[string]string `bson:"tenants,omitempty" json:"tenants,omitempty"` // tenantID -> role
	CreatedAt    time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	BusinessType string `json:"businessType,omitempty"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the request body for refreshing an access token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse carries a fresh token pair.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	TenantID     string `json:"tenantId,omitempty"`
}

// UserTenant is one entry of a user's tenant membership listing.
type UserTenant struct {
	TenantID   string `json:"tenantId"`
	TenantName string `json:"tenantName"`
	Role       string `json:"role"`
}
