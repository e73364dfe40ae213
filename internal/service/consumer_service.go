package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/Tairs07/Media/internal/constant"
	"github.com/Tairs07/Media/internal/dto"
	"github.com/Tairs07/Media/internal/pkg/storage"
	"github.com/Tairs07/Media/internal/repository/specification"
	"github.com/Tairs07/Media/internal/repository/unitofwork"
	internalWS "github.com/Tairs07/Media/internal/websocket"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the thumbnail job queue. Each job generates a
// thumbnail for one uploaded image and notifies the owner over websocket.
type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	store      *storage.LocalStorage
	hub        *internalWS.Hub
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	store *storage.LocalStorage,
	hub *internalWS.Hub,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
		store:      store,
		hub:        hub,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishThumbnailMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal thumbnail job: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Generating thumbnail for media file %s", payload.MediaFileId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	media, err := uow.MediaFileRepository().FindOne(ctx, specification.ByID{ID: payload.MediaFileId})
	if err != nil {
		log.Printf("[ERROR] Failed to load media file %s: %v", payload.MediaFileId, err)
		msg.Nack() // Nack for retriable errors
		return
	}
	if media == nil {
		// Deleted before the job ran. Nothing to do.
		msg.Ack()
		return
	}
	if media.FileType != constant.MediaFileTypeImage || media.ThumbnailPath != nil {
		msg.Ack()
		return
	}

	thumbPath, err := cs.store.GenerateThumbnail(media.FilePath)
	if err != nil {
		log.Printf("[ERROR] Thumbnail generation failed for %s: %v", media.Id, err)
		msg.Ack() // Source file is unreadable; retrying won't help
		return
	}

	media.ThumbnailPath = &thumbPath
	if err := uow.MediaFileRepository().Update(ctx, media); err != nil {
		log.Printf("[ERROR] Failed to save thumbnail path for %s: %v", media.Id, err)
		msg.Nack()
		return
	}

	if cs.hub != nil {
		cs.hub.SendToUser(media.UserId, "thumbnail_ready", map[string]interface{}{
			"media_file_id":  media.Id.String(),
			"thumbnail_path": thumbPath,
		})
	}

	msg.Ack()
}
