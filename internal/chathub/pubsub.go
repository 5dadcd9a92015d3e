package chathub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"beamchat/backend/internal/models"
)

// Subscriber provides the pattern subscription covering all chat channels.
// *storage.Service satisfies it; tests leave it unset and feed PubSubCh
// directly.
type Subscriber interface {
	SubscribeAll(ctx context.Context) *redis.PubSub
}

// startPubSubListener pipes the Redis stream into the hub loop. Envelopes
// published by any instance (including this one) arrive here, so local and
// remote broadcasts take the same path.
func (m *ManagerService) startPubSubListener() {
	go func() {
		ctx := context.Background()
		pubsub := m.sub.SubscribeAll(ctx)
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var env models.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				m.log.WithError(err).Warn("dropping malformed pub/sub payload")
				continue
			}
			m.PubSubCh <- env
		}
	}()
}
