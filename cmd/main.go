package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"beamchat/backend/internal/api/handler"
	"beamchat/backend/internal/api/middleware"
	"beamchat/backend/internal/auth"
	"beamchat/backend/internal/chathub"
	"beamchat/backend/internal/config"
	"beamchat/backend/internal/models"
	"beamchat/backend/internal/presence"
	"beamchat/backend/internal/storage"
	"beamchat/backend/internal/worker"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect Redis: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.Message{},
	); err != nil {
		logrus.Fatalf("failed to run migrations: %v", err)
	}

	logrus.Info("database and Redis connections established, migrations complete")
	return db, rdb
}

func main() {
	logrus.Info("starting BeamChat backend...")

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	tracker := presence.NewTracker()
	hub := chathub.NewManagerService(s, tracker)
	hub.SetSubscriber(s)
	go hub.Run()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	queue := asynq.NewClient(redisOpt)
	defer queue.Close()

	workerSrv, mux := worker.NewServer(redisOpt, cfg.WorkerConcurrency, s)
	go func() {
		if err := workerSrv.Run(mux); err != nil {
			logrus.Fatalf("worker server stopped: %v", err)
		}
	}()

	authSvc := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	h := handler.NewHandler(hub, s, authSvc, queue)

	r := gin.Default()
	r.POST("/api/auth/token", h.IssueToken)

	authed := r.Group("/", middleware.Auth(authSvc))
	authed.GET("/ws", h.ServeWebSocket)
	authed.GET("/api/users", h.ListUsers)
	authed.PUT("/api/users/me", h.UpdateProfile)
	authed.GET("/api/users/online", h.OnlineUsers)
	authed.GET("/api/chat/rooms", h.ListRooms)
	authed.POST("/api/chat/room", h.CreateRoom)
	authed.DELETE("/api/chat/room/:roomID", h.DeleteRoom)
	authed.GET("/api/chat/messages/:roomID", h.ListMessages)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	logrus.Infof("listening on %s", cfg.HTTPAddr)
	logrus.Fatal(server.ListenAndServe())
}
