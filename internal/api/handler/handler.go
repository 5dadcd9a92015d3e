package handler

import (
	"context"

	"github.com/hibiken/asynq"

	"beamchat/backend/internal/auth"
	"beamchat/backend/internal/chathub"
	"beamchat/backend/internal/storage"
)

// Enqueuer is the slice of *asynq.Client the handlers need. Mocked in
// tests.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Handler carries the dependencies of the HTTP surface.
type Handler struct {
	Hub     *chathub.ManagerService
	Storage storage.Storage
	Auth    *auth.Service
	Queue   Enqueuer
}

func NewHandler(hub *chathub.ManagerService, s storage.Storage, a *auth.Service, q Enqueuer) *Handler {
	return &Handler{Hub: hub, Storage: s, Auth: a, Queue: q}
}
