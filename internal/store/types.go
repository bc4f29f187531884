package store

// Message status lifecycle. A message enters at StatusPending and may only
// terminate at StatusFailed; every other transition is driven by remote
// acknowledgement or by subscription merge.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// Message represents a chat message. ID is a client-generated UUID until the
// remote store acknowledges the message, at which point ReplaceMessageID swaps
// it for the canonical remote id in a single transaction.
type Message struct {
	ID        string
	ChatID    string
	SenderID  string
	Text      string
	ImageRef  string // file:// path before upload, https URL after
	AudioRef  string
	Status    string
	Timestamp int64 // unix ms, client-assigned at creation
}

// Chat represents a conversation.
type Chat struct {
	ID                 string
	Name               string
	IsGroup            bool
	UnreadCount        int
	LastMessageAt      int64
	LastMessagePreview string
}

// User represents a chat participant.
type User struct {
	ID        string
	Name      string
	AvatarURL string
}

// UserReadStatus is the last-read register for one (chat, user) pair.
// LastReadAt is monotonically non-decreasing; stale updates are discarded.
type UserReadStatus struct {
	ChatID           string
	UserID           string
	LastReadEntityID string
	LastReadAt       int64
}

// Reaction is the single live reaction of one user on one message.
type Reaction struct {
	ChatID    string
	MessageID string
	UserID    string
	Emoji     string
	Timestamp int64
}

// PendingMessage is a queued outbound-message operation. MessageID references
// the local message row holding the payload.
type PendingMessage struct {
	ID        string
	ChatID    string
	MessageID string
	CreatedAt int64
}

// PendingReaction is a queued reaction mutation. An empty Emoji means remove.
type PendingReaction struct {
	ID        string
	ChatID    string
	MessageID string
	UserID    string
	Emoji     string
	Timestamp int64
	CreatedAt int64
}

// PendingReadReceipt is a queued read-position advance.
type PendingReadReceipt struct {
	ID        string
	ChatID    string
	UserID    string
	EntityID  string
	ReadAt    int64
	CreatedAt int64
}
