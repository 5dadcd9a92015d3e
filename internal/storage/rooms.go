package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"beamchat/backend/internal/chaterr"
	"beamchat/backend/internal/models"
)

// pairKey returns the canonical participant array for a two-party room.
// Participants are stored sorted so the same pair always hits the same row.
func pairKey(userA, userB string) pq.StringArray {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return pq.StringArray(pair)
}

// CreateRoom finds or creates the pairwise room between two users,
// independent of argument order.
func (s *Service) CreateRoom(ctx context.Context, userA, userB string) (*models.Room, error) {
	if userA == userB {
		return nil, fmt.Errorf("%w: cannot open a room with yourself", chaterr.ErrValidation)
	}
	pair := pairKey(userA, userB)

	var room models.Room
	err := s.DB.WithContext(ctx).Where("participants = ?", pair).First(&room).Error
	if err == nil {
		return &room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr(err)
	}

	room = models.Room{Participants: pair}
	if err := s.DB.WithContext(ctx).Create(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race against a concurrent create of the same pair;
			// the unique index on participants guarantees one row to return.
			var existing models.Room
			if err := s.DB.WithContext(ctx).Where("participants = ?", pair).First(&existing).Error; err != nil {
				return nil, storeErr(err)
			}
			return &existing, nil
		}
		return nil, storeErr(err)
	}
	logrus.WithFields(logrus.Fields{"room_id": room.RoomID}).Info("room created")
	return &room, nil
}

// FindRoomsForUser lists a user's rooms ordered by most recent activity,
// with participant profiles attached for previews.
func (s *Service) FindRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	var rooms []models.Room
	err := s.DB.WithContext(ctx).
		Where("? = ANY(participants)", userID).
		Order("updated_at desc").
		Find(&rooms).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr(err)
	}
	if len(rooms) == 0 {
		return rooms, nil
	}

	// One query for all profiles referenced by the page of rooms.
	idSet := map[string]struct{}{userID: {}}
	for _, r := range rooms {
		if peer := r.PeerOf(userID); peer != "" {
			idSet[peer] = struct{}{}
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, storeErr(err)
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	// Peer first, so clients render previews from Profiles[0].
	for i := range rooms {
		if u, ok := byID[rooms[i].PeerOf(userID)]; ok {
			rooms[i].Profiles = append(rooms[i].Profiles, u)
		}
		if u, ok := byID[userID]; ok {
			rooms[i].Profiles = append(rooms[i].Profiles, u)
		}
	}
	return rooms, nil
}

func (s *Service) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	if err := s.DB.WithContext(ctx).First(&room, "room_id = ?", roomID).Error; err != nil {
		return nil, storeErr(err)
	}
	return &room, nil
}

// DeleteRoom removes the room row. The message log is purged afterwards by
// the background worker; room listings are consistent immediately.
func (s *Service) DeleteRoom(ctx context.Context, roomID string) error {
	result := s.DB.WithContext(ctx).Delete(&models.Room{}, "room_id = ?", roomID)
	if result.Error != nil {
		return storeErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return chaterr.ErrNotFound
	}
	logrus.WithFields(logrus.Fields{"room_id": roomID}).Info("room deleted")
	return nil
}

// TouchLastMessage refreshes the room's last-message preview cache. Not
// transactional with the message append; the preview may transiently lag.
func (s *Service) TouchLastMessage(ctx context.Context, msg *models.Message) error {
	err := s.DB.WithContext(ctx).Model(&models.Room{}).
		Where("room_id = ?", msg.RoomID).
		Updates(map[string]interface{}{
			"last_content":   msg.Content,
			"last_type":      msg.Type,
			"last_sender_id": msg.SenderID,
			"last_sent_at":   msg.CreatedAt,
		}).Error
	return storeErr(err)
}
