package models

import "time"

// Message is a directed communication unit between two accounts. The sender
// and receiver usernames are cached at send time; a later handle change is
// not reflected in old rows.
type Message struct {
	ID               int        `db:"id" json:"id"`
	SenderID         string     `db:"sender_id" json:"senderId"`
	SenderUsername   string     `db:"sender_username" json:"senderUsername"`
	ReceiverID       string     `db:"receiver_id" json:"receiverId"`
	ReceiverUsername string     `db:"receiver_username" json:"receiverUsername"`
	Content          string     `db:"content" json:"content"`
	Type             string     `db:"type" json:"type"`
	ImageURI         *string    `db:"image_uri" json:"imageUri,omitempty"`
	AudioURI         *string    `db:"audio_uri" json:"audioUri,omitempty"`
	ReplyToMessageID *int       `db:"reply_to_message_id" json:"replyToMessageId,omitempty"`
	Timestamp        time.Time  `db:"timestamp" json:"timestamp"`
	IsRead           bool       `db:"is_read" json:"isRead"`
	IsDelivered      bool       `db:"is_delivered" json:"isDelivered"`
	IsEdited         bool       `db:"is_edited" json:"isEdited"`
	IsDeleted        bool       `db:"is_deleted" json:"isDeleted"`
	EditedAt         *time.Time `db:"edited_at" json:"editedAt,omitempty"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	GroupID          *string    `db:"group_id" json:"groupId,omitempty"`
	IsGroupMessage   bool       `db:"is_group_message" json:"isGroupMessage"`
}

// PartnerOf returns the other participant's identifier and cached handle.
func (m *Message) PartnerOf(email string) (id, username string) {
	if m.SenderID == email {
		return m.ReceiverID, m.ReceiverUsername
	}
	return m.SenderID, m.SenderUsername
}
