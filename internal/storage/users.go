package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"beamchat/backend/internal/models"
)

// SaveUser upserts a user row.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return storeErr(s.DB.WithContext(ctx).Save(user).Error)
}

func (s *Service) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, storeErr(err)
	}
	return &user, nil
}

// FindOrCreateUserByEmail returns the account for an email, creating it on
// first contact. Emails are compared case-insensitively by lowering on the
// way in.
func (s *Service) FindOrCreateUserByEmail(ctx context.Context, email, displayName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	// The lookup matches on email alone. The display name is an Attrs
	// default applied only on create, never a query condition; a renamed
	// account must still be found on its next token issuance.
	var user models.User
	result := s.DB.WithContext(ctx).
		Where("email = ?", email).
		Attrs(models.User{Email: email, DisplayName: displayName}).
		FirstOrCreate(&user)
	if result.Error != nil {
		return nil, storeErr(result.Error)
	}
	if result.RowsAffected > 0 {
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "email": email}).Info("new user created")
	}
	return &user, nil
}

// ListUsers returns every account except excludeID, for the chat-partner
// directory.
func (s *Service) ListUsers(ctx context.Context, excludeID string) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).
		Where("id <> ?", excludeID).
		Order("display_name asc").
		Find(&users).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr(err)
	}
	return users, nil
}
