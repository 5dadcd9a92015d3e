package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"beamchat/backend/internal/chaterr"
	"beamchat/backend/internal/models"
)

// PublishEvent serializes an envelope onto a Redis channel. Delivery order
// per channel follows publish order, which gives rooms their
// persisted-before-broadcast ordering.
func (s *Service) PublishEvent(ctx context.Context, channel string, env models.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := s.Redis.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", chaterr.ErrStoreUnavailable, err)
	}
	return nil
}

// SubscribeAll returns a pattern subscription covering every chat channel
// (rooms and presence). The hub consumes it for local fan-out.
func (s *Service) SubscribeAll(ctx context.Context) *redis.PubSub {
	return s.Redis.PSubscribe(ctx, ChannelPattern)
}

func connsKey(userID string) string {
	return connsKeyPrefix + userID
}

// MarkOnline records a connection in the user's shared connection set and
// reports whether it was the first one anywhere. The count lives in Redis,
// not in process memory, so instances hosting the same user agree on the
// online transition.
func (s *Service) MarkOnline(ctx context.Context, userID, connID string) (bool, error) {
	pipe := s.Redis.TxPipeline()
	pipe.SAdd(ctx, connsKey(userID), connID)
	card := pipe.SCard(ctx, connsKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", chaterr.ErrStoreUnavailable, err)
	}
	first := card.Val() == 1
	if first {
		if err := s.Redis.SAdd(ctx, onlineSetKey, userID).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", chaterr.ErrStoreUnavailable, err)
		}
	}
	return first, nil
}

// MarkOffline removes a connection from the user's shared set and reports
// whether it was the last one anywhere. Only then does the user leave the
// online set.
func (s *Service) MarkOffline(ctx context.Context, userID, connID string) (bool, error) {
	pipe := s.Redis.TxPipeline()
	pipe.SRem(ctx, connsKey(userID), connID)
	card := pipe.SCard(ctx, connsKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", chaterr.ErrStoreUnavailable, err)
	}
	last := card.Val() == 0
	if last {
		if err := s.Redis.SRem(ctx, onlineSetKey, userID).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", chaterr.ErrStoreUnavailable, err)
		}
	}
	return last, nil
}

// OnlineUserIDs returns the shared online set.
func (s *Service) OnlineUserIDs(ctx context.Context) ([]string, error) {
	ids, err := s.Redis.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chaterr.ErrStoreUnavailable, err)
	}
	return ids, nil
}
