package models

import "time"

// TenantConfig is a tenant's chatbot configuration document.
// One document per tenant; the document ID is the tenant ID.
type TenantConfig struct {
	ID             string `bson:"_id,omitempty" json:"tenantId"`
	TenantName     string `bson:"tenantName,omitempty" json:"tenantName,omitempty"`
	Email          string `bson:"email,omitempty" json:"email,omitempty"`
	OwnerUID       string `bson:"ownerUid,omitempty" json:"ownerUid,omitempty"`
	Status         string `bson:"status,omitempty" json:"status,omitempty"`
	BusinessType   string `bson:"businessType,omitempty" json:"businessType,omitempty"`
	ChatbotName    string `bson:"chatbotName,omitempty" json:"chatbotName,omitempty"`
	WelcomeMessage string `bson:"welcomeMessage,omitempty" json:"welcomeMessage,omitempty"`

	// Persona and knowledge base drive prompt composition.
	// KnowledgeBase is chunk-delimited by the literal separator "###".
	BotPersona    string `bson:"botPersona,omitempty" json:"botPersona,omitempty"`
	KnowledgeBase string `bson:"knowledgeBase,omitempty" json:"knowledgeBase,omitempty"`

	// Behavioral toggles. Each selects one of two fixed instruction lines,
	// except ShowEmpathy which is additive (contributes nothing when false).
	IsDetailedResponse bool `bson:"isDetailedResponse" json:"isDetailedResponse"`
	IsSweetTone        bool `bson:"isSweetTone" json:"isSweetTone"`
	ShowEmpathy        bool `bson:"showEmpathy" json:"showEmpathy"`
	HighSalesDrive     bool `bson:"highSalesDrive" json:"highSalesDrive"`

	// Messaging platform credentials.
	LineAccessToken     string `bson:"lineAccessToken,omitempty" json:"-"`
	FacebookPageToken   string `bson:"facebookPageToken,omitempty" json:"-"`
	FacebookVerifyToken string `bson:"facebookVerifyToken,omitempty" json:"-"`

	// Members maps user ID to role ("owner", "admin", "agent").
	Members map[string]string `bson:"members,omitempty" json:"members,omitempty"`

	CreatedAt time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// TenantUpdateRequest is the request body for updating tenant configuration.
// Nil fields are left untouched.
type TenantUpdateRequest struct {
	TenantName          *string `json:"tenantName,omitempty"`
	BusinessType        *string `json:"businessType,omitempty"`
	ChatbotName         *string `json:"chatbotName,omitempty"`
	WelcomeMessage      *string `json:"welcomeMessage,omitempty"`
	BotPersona          *string `json:"botPersona,omitempty"`
	KnowledgeBase       *string `json:"knowledgeBase,omitempty"`
	IsDetailedResponse  *bool   `json:"isDetailedResponse,omitempty"`
	IsSweetTone         *bool   `json:"isSweetTone,omitempty"`
	ShowEmpathy         *bool   `json:"showEmpathy,omitempty"`
	HighSalesDrive      *bool   `json:"highSalesDrive,omitempty"`
	LineAccessToken     *string `json:"lineAccessToken,omitempty"`
	FacebookPageToken   *string `json:"facebookPageToken,omitempty"`
	FacebookVerifyToken *string `json:"facebookVerifyToken,omitempty"`
}
