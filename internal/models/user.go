package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account in the system. Accounts are created on first
// successful authentication and are never hard-deleted.
type User struct {
	ID          string `gorm:"primaryKey" json:"id"`
	DisplayName string `gorm:"type:text" json:"display_name"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`

	// ExternalSubject holds the subject of a federated identity
	// (e.g. an OAuth "sub" claim). Nil for local accounts.
	ExternalSubject *string `gorm:"uniqueIndex" json:"-"`
	// CredentialHash is managed by the external auth collaborator.
	CredentialHash *string `gorm:"type:text" json:"-"`

	AvatarURL       string `gorm:"type:text" json:"avatar_url"`
	ProfileComplete bool   `json:"profile_complete"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook that assigns a UUID when the ID is not set.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
