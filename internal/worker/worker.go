// Package worker runs the asynq background jobs. The only job today is the
// best-effort cascade that purges a deleted room's message log.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"beamchat/backend/internal/storage"
)

// TypePurgeRoom is the task type enqueued when a room is deleted.
const TypePurgeRoom = "chat:purge_room"

type PurgeRoomPayload struct {
	RoomID string `json:"room_id"`
}

// NewPurgeRoomTask builds the purge task for a room.
func NewPurgeRoomTask(roomID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PurgeRoomPayload{RoomID: roomID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePurgeRoom, payload, asynq.MaxRetry(5)), nil
}

// Handler holds the worker-side dependencies.
type Handler struct {
	Storage storage.Storage
}

// HandlePurgeRoom deletes every message of the room named in the task.
// Safe to retry: a repeat run deletes zero rows.
func (h *Handler) HandlePurgeRoom(ctx context.Context, t *asynq.Task) error {
	var p PurgeRoomPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if p.RoomID == "" {
		return fmt.Errorf("empty room id: %w", asynq.SkipRetry)
	}

	n, err := h.Storage.PurgeMessages(ctx, p.RoomID)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"room_id": p.RoomID, "deleted": n}).Info("room messages purged")
	return nil
}

// NewServer builds the asynq server and its mux with all handlers
// registered.
func NewServer(redisOpt asynq.RedisClientOpt, concurrency int, s storage.Storage) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logrus.WithField("task", task.Type()).WithError(err).Error("task failed")
		}),
	})

	h := &Handler{Storage: s}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePurgeRoom, h.HandlePurgeRoom)
	return srv, mux
}
