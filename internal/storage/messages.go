package storage

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"beamchat/backend/internal/config"
	"beamchat/backend/internal/models"
)

// AppendMessage persists a message. The message ID and timestamp are
// assigned here (server side) before any broadcast fires.
func (s *Service) AppendMessage(ctx context.Context, msg *models.Message) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		logrus.WithFields(logrus.Fields{"room_id": msg.RoomID}).WithError(err).Error("failed to append message")
		return storeErr(err)
	}
	return nil
}

// ListMessages returns the most recent messages of a room in chronological
// ascending order. The limit is clamped to the configured page cap; ties on
// the timestamp break by insertion ID.
func (s *Service) ListMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > config.MessagePageLimit {
		limit = config.MessagePageLimit
	}

	var page []models.Message
	err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&page).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr(err)
	}

	// The query walks backwards from the tail; flip to ascending.
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

// PurgeMessages deletes every message of a room and returns how many rows
// went. Idempotent: purging an already-empty room deletes zero rows.
func (s *Service) PurgeMessages(ctx context.Context, roomID string) (int64, error) {
	result := s.DB.WithContext(ctx).Delete(&models.Message{}, "room_id = ?", roomID)
	if result.Error != nil {
		return 0, storeErr(result.Error)
	}
	return result.RowsAffected, nil
}
