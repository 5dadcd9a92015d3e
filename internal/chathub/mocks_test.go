package chathub_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"beamchat/backend/internal/models"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStorage) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) FindOrCreateUserByEmail(ctx context.Context, email, displayName string) (*models.User, error) {
	args := m.Called(ctx, email, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) ListUsers(ctx context.Context, excludeID string) ([]models.User, error) {
	args := m.Called(ctx, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockStorage) CreateRoom(ctx context.Context, userA, userB string) (*models.Room, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockStorage) FindRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Room), args.Error(1)
}

func (m *MockStorage) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockStorage) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockStorage) TouchLastMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStorage) AppendMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStorage) ListMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) PurgeMessages(ctx context.Context, roomID string) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) PublishEvent(ctx context.Context, channel string, env models.Envelope) error {
	args := m.Called(ctx, channel, env)
	return args.Error(0)
}

func (m *MockStorage) MarkOnline(ctx context.Context, userID, connID string) (bool, error) {
	args := m.Called(ctx, userID, connID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) MarkOffline(ctx context.Context, userID, connID string) (bool, error) {
	args := m.Called(ctx, userID, connID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) OnlineUserIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockClient is a test double for the chathub.Client interface. RecvChannel
// is the read side of what the hub writes to.
type MockClient struct {
	connID      string
	userID      string
	RecvChannel chan models.Envelope
}

func newMockClient(connID, userID string) *MockClient {
	return &MockClient{
		connID:      connID,
		userID:      userID,
		RecvChannel: make(chan models.Envelope, 16), // buffered to avoid blocking the hub loop
	}
}

func (c *MockClient) GetConnID() string { return c.connID }
func (c *MockClient) GetUserID() string { return c.userID }
func (c *MockClient) GetSendChannel() chan<- models.Envelope { return c.RecvChannel }
func (c *MockClient) Run()   {}
func (c *MockClient) Close() {}
