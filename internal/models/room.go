package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// MessagePreview is the denormalized last-message cache kept on a room for
// list previews. It may transiently lag the actual latest message.
type MessagePreview struct {
	Content  string    `gorm:"type:text" json:"content"`
	Type     string    `gorm:"type:text" json:"type"`
	SenderID string    `gorm:"type:text" json:"sender_id"`
	SentAt   time.Time `json:"sent_at"`
}

// Room is a persistent two-party conversation. Participants holds exactly
// two user IDs and is immutable after creation.
type Room struct {
	RoomID       string         `gorm:"primaryKey" json:"id"`
	Participants pq.StringArray `gorm:"type:text[];not null;uniqueIndex:idx_rooms_participants" json:"participants"`

	LastMessage MessagePreview `gorm:"embedded;embeddedPrefix:last_" json:"last_message"`

	// Profiles are populated on listing for the client's room previews,
	// not stored on the row itself.
	Profiles []User `gorm:"-" json:"profiles,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Room) BeforeCreate(tx *gorm.DB) (err error) {
	if r.RoomID == "" {
		r.RoomID = uuid.New().String()
	}
	return
}

// HasParticipant reports whether userID is one of the room's participants.
func (r *Room) HasParticipant(userID string) bool {
	for _, id := range r.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// PeerOf returns the other participant of a pairwise room, or "" when
// userID is not a participant.
func (r *Room) PeerOf(userID string) string {
	for _, id := range r.Participants {
		if id != userID {
			return id
		}
	}
	return ""
}
