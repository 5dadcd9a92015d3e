package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message type discriminators.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// Message is one immutable entry in a room's append-only message log.
// For type "image" the content is a media reference, not inline bytes.
type Message struct {
	ID       string `gorm:"primaryKey" json:"id"`
	RoomID   string `gorm:"not null;index:idx_room_created,priority:1" json:"room_id"`
	SenderID string `gorm:"type:text;not null" json:"sender_id"`
	Content  string `gorm:"type:text;not null" json:"content"`
	Type     string `gorm:"type:text;not null" json:"type"`

	CreatedAt time.Time `gorm:"index:idx_room_created,priority:2" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
