package models

// LineWebhookBody is the envelope LINE posts to the webhook endpoint.
type LineWebhookBody struct {
	Destination string      `json:"destination,omitempty"`
	Events      []LineEvent `json:"events"`
}

// LineEvent is a single LINE webhook event.
type LineEvent struct {
	Type            string             `json:"type"`
	WebhookEventID  string             `json:"webhookEventId,omitempty"`
	Timestamp       int64              `json:"timestamp,omitempty"`
	ReplyToken      string             `json:"replyToken,omitempty"`
	Source          *LineEventSource   `json:"source,omitempty"`
	Message         *LineEventMessage  `json:"message,omitempty"`
	DeliveryContext *LineEventDelivery `json:"deliveryContext,omitempty"`
}

// LineEventSource identifies the sender of a LINE event.
type LineEventSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
}

// LineEventMessage is the message payload of a LINE message event.
type LineEventMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// LineEventDelivery marks redelivered events.
type LineEventDelivery struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// FacebookWebhookBody is the envelope Facebook posts to the webhook endpoint.
type FacebookWebhookBody struct {
	Object string          `json:"object"`
	Entry  []FacebookEntry `json:"entry"`
}

// FacebookEntry is one page entry in a Facebook webhook body.
type FacebookEntry struct {
	ID        string              `json:"id"`
	Time      int64               `json:"time"`
	Messaging []FacebookMessaging `json:"messaging"`
}

// FacebookMessaging is a single messaging event.
type FacebookMessaging struct {
	Sender    *FacebookParty   `json:"sender,omitempty"`
	Recipient *FacebookParty   `json:"recipient,omitempty"`
	Timestamp int64            `json:"timestamp,omitempty"`
	Message   *FacebookMessage `json:"message,omitempty"`
}

// FacebookParty identifies a sender or recipient by page-scoped ID.
type FacebookParty struct {
	ID string `json:"id"`
}

// FacebookMessage is the message payload of a Facebook messaging event.
type FacebookMessage struct {
	MID    string `json:"mid,omitempty"`
	Text   string `json:"text,omitempty"`
	IsEcho bool   `json:"is_echo,omitempty"`
}

// ChatRequest is the request body for the website chat widget endpoint.
type ChatRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// ChatResponse is the reply returned to the chat widget.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// AssistantRequest is the request body for the settings assistant endpoint.
type AssistantRequest struct {
	Message string `json:"message"`
}

// AssistantResponse is the assistant's conversational reply.
type AssistantResponse struct {
	Reply string `json:"reply"`
}

// AdminMessageRequest is the request body for sending an admin message.
type AdminMessageRequest struct {
	Message string `json:"message"`
}
