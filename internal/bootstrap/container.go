package bootstrap

import (
	"context"
	"log"

	"github.com/Tairs07/Media/internal/config"
	"github.com/Tairs07/Media/internal/controller"
	"github.com/Tairs07/Media/internal/handler"
	"github.com/Tairs07/Media/internal/pkg/logger"
	"github.com/Tairs07/Media/internal/pkg/storage"
	"github.com/Tairs07/Media/internal/repository/unitofwork"
	"github.com/Tairs07/Media/internal/service"
	"github.com/Tairs07/Media/internal/websocket"
	"github.com/Tairs07/Media/pkg/llm/qwen"

	pktNats "github.com/Tairs07/Media/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const thumbnailTopicName = "GENERATE_THUMBNAIL"

type Container struct {
	// Controllers
	AuthController  controller.IAuthController
	UserController  controller.IUserController
	MediaController controller.IMediaController
	ChatController  controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	store := storage.NewLocalStorage(
		cfg.Storage.UploadPath,
		cfg.Storage.MaxImageSize,
		cfg.Storage.MaxVideoSize,
		cfg.Storage.ThumbnailWidth,
		cfg.Storage.ThumbnailHeight,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// Upstream text generation provider
	qwenProvider := qwen.NewQwenProvider(qwen.Config{
		APIKey:      cfg.Qwen.APIKey,
		Endpoint:    cfg.Qwen.Endpoint,
		Timeout:     cfg.Qwen.Timeout,
		Temperature: cfg.Qwen.Temperature,
		TopP:        cfg.Qwen.TopP,
	})

	// 3. Services
	publisherService := service.NewPublisherService(thumbnailTopicName, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		thumbnailTopicName,
		uowFactory,
		store,
		wsHub,
	)

	authService := service.NewAuthService(uowFactory)
	userService := service.NewUserService(uowFactory)
	mediaService := service.NewMediaService(
		uowFactory,
		store,
		publisherService,
		natsPub,
		sysLogger,
		cfg.App.BaseURL,
	)
	chatService := service.NewChatService(
		uowFactory,
		qwenProvider,
		qwen.AvailableModels(),
		rdb,
		natsPub,
		sysLogger,
		cfg.Chat.DailyMessageLimit,
	)

	notifHandler := handler.NewNotificationHandler(wsHub, wsLogger)

	// 4. Controllers
	return &Container{
		AuthController:  controller.NewAuthController(authService),
		UserController:  controller.NewUserController(userService, mediaService),
		MediaController: controller.NewMediaController(mediaService),
		ChatController:  controller.NewChatController(chatService),

		ConsumerService: consumerService,

		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,
	}
}
