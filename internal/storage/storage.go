package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"beamchat/backend/internal/chaterr"
	"beamchat/backend/internal/models"
)

// Redis channel layout. Every instance publishes here and every instance's
// hub subscribes to the pattern, so fan-out is uniform across processes.
const (
	channelPrefix   = "chat:"
	ChannelPattern  = "chat:*"
	PresenceChannel = "chat:presence"

	onlineSetKey   = "presence:online"
	connsKeyPrefix = "presence:conns:"
)

// RoomChannel returns the pub/sub channel for one room.
func RoomChannel(roomID string) string {
	return channelPrefix + "room:" + roomID
}

// Storage is the persistence boundary used by the HTTP handlers, the
// realtime hub, and the worker.
type Storage interface {
	SaveUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindOrCreateUserByEmail(ctx context.Context, email, displayName string) (*models.User, error)
	ListUsers(ctx context.Context, excludeID string) ([]models.User, error)

	CreateRoom(ctx context.Context, userA, userB string) (*models.Room, error)
	FindRoomsForUser(ctx context.Context, userID string) ([]models.Room, error)
	GetRoomByID(ctx context.Context, roomID string) (*models.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
	TouchLastMessage(ctx context.Context, msg *models.Message) error

	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	PurgeMessages(ctx context.Context, roomID string) (int64, error)

	PublishEvent(ctx context.Context, channel string, env models.Envelope) error

	MarkOnline(ctx context.Context, userID, connID string) (bool, error)
	MarkOffline(ctx context.Context, userID, connID string) (bool, error)
	OnlineUserIDs(ctx context.Context) ([]string, error)
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb}
}

var _ Storage = (*Service)(nil)

// storeErr wraps database failures in the shared taxonomy. Record-not-found
// is the caller's NotFound, everything else means the store is unhealthy.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chaterr.ErrNotFound
	}
	return fmt.Errorf("%w: %v", chaterr.ErrStoreUnavailable, err)
}
