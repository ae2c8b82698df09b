package models

// Message roles as stored in conversation history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Platforms a conversation can originate from.
const (
	PlatformLine     = "line"
	PlatformFacebook = "facebook"
	PlatformWeb      = "web"
	PlatformUnknown  = "unknown"
)

// Failure types recorded on synthetic error entries.
const (
	FailureInitialization = "initialization_error"
	FailureSummarization  = "summarization_failed"
	FailureFullFallback   = "full_fallback_failed"
	FailureCoreLogic      = "core_logic_error"
)

// Statuses carried by synthetic error entries. Entries with a status set are
// error markers, never real exchanges, and are excluded from model context.
const (
	StatusRequiresReview      = "requires_review"
	StatusRequiresManualReply = "requires_manual_reply"
)

// MessagePart is one piece of message content. The pipeline only ever writes
// single-text parts; the slice exists for forward compatibility.
type MessagePart struct {
	Text string `bson:"text" json:"text"`
}

// Message is one entry in a conversation's history. Immutable once written,
// except for the Summarized flag which the summarizer flips.
type Message struct {
	Role       string        `bson:"role" json:"role"`
	Parts      []MessagePart `bson:"parts" json:"parts"`
	Timestamp  string        `bson:"timestamp" json:"timestamp"`
	Summarized bool          `bson:"summarized,omitempty" json:"summarized,omitempty"`

	// Error-marker fields, present only on synthetic error entries.
	Status       string `bson:"status,omitempty" json:"status,omitempty"`
	FailureType  string `bson:"failureType,omitempty" json:"failureType,omitempty"`
	ErrorDetails string `bson:"errorDetails,omitempty" json:"errorDetails,omitempty"`

	// Admin-attribution fields, present only on admin-authored entries.
	// The reply pipeline reads these as ordinary model-role history.
	SenderType string `bson:"senderType,omitempty" json:"senderType,omitempty"`
	SenderID   string `bson:"senderId,omitempty" json:"senderId,omitempty"`
	SenderName string `bson:"senderName,omitempty" json:"senderName,omitempty"`
}

// Text joins the message's text parts with single spaces.
func (m Message) Text() string {
	switch len(m.Parts) {
	case 0:
		return ""
	case 1:
		return m.Parts[0].Text
	}
	out := m.Parts[0].Text
	for _, p := range m.Parts[1:] {
		out += " " + p.Text
	}
	return out
}

// IsErrorEntry reports whether the message is a synthetic error marker.
func (m Message) IsErrorEntry() bool {
	return m.Status != ""
}

// NewTextMessage builds a single-text-part message.
func NewTextMessage(role, text, timestamp string) Message {
	return Message{
		Role:      role,
		Parts:     []MessagePart{{Text: text}},
		Timestamp: timestamp,
	}
}

// ConversationRecord is the per-(tenant, user) conversation document.
// The reply pipeline replaces the whole record in a single terminal write.
type ConversationRecord struct {
	History         []Message `bson:"history" json:"history"`
	Summary         string    `bson:"summary" json:"summary"`
	LastMessageTime string    `bson:"lastMessageTime,omitempty" json:"lastMessageTime,omitempty"`
	DisplayName     string    `bson:"displayName,omitempty" json:"displayName,omitempty"`
	PictureURL      string    `bson:"pictureUrl,omitempty" json:"pictureUrl,omitempty"`
	Platform        string    `bson:"platform,omitempty" json:"platform,omitempty"`

	// AdminLastSeen is the last time an admin opened this chat in the inbox.
	AdminLastSeen string `bson:"adminLastSeenTimestamp,omitempty" json:"adminLastSeenTimestamp,omitempty"`
}

// Unsummarized returns the history entries not yet folded into the summary.
func (r *ConversationRecord) Unsummarized() []Message {
	var out []Message
	for _, msg := range r.History {
		if !msg.Summarized {
			out = append(out, msg)
		}
	}
	return out
}

// ConversationListItem is an inbox summary row for one conversation.
type ConversationListItem struct {
	UserID          string `json:"userId"`
	DisplayName     string `json:"displayName,omitempty"`
	PictureURL      string `json:"pictureUrl,omitempty"`
	Platform        string `json:"platform,omitempty"`
	LastMessageTime string `json:"lastMessageTime,omitempty"`
	LastMessage     string `json:"lastMessage,omitempty"`
	Unread          bool   `json:"unread"`

	// NeedsAttention marks conversations whose latest entry is an error
	// marker awaiting a human reply.
	NeedsAttention bool `json:"needsAttention,omitempty"`
}
