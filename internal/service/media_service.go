package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/Tairs07/Media/internal/dto"
	"github.com/Tairs07/Media/internal/entity"
	"github.com/Tairs07/Media/internal/pkg/logger"
	"github.com/Tairs07/Media/internal/pkg/storage"
	"github.com/Tairs07/Media/internal/repository/specification"
	"github.com/Tairs07/Media/internal/repository/unitofwork"
	"github.com/Tairs07/Media/pkg/events"
	pktNats "github.com/Tairs07/Media/pkg/nats"

	"github.com/google/uuid"
)

type MediaListFilter struct {
	FileType   string
	Tag        string
	PublicOnly bool
	Page       int
	PageSize   int
}

type IMediaService interface {
	Upload(ctx context.Context, userId uuid.UUID, files []*multipart.FileHeader) (*dto.UploadResponse, error)
	GetUserMedia(ctx context.Context, userId uuid.UUID, filter MediaListFilter) (*dto.MediaListResponse, error)
	GetMediaForUser(ctx context.Context, requesterId, ownerId uuid.UUID, filter MediaListFilter) (*dto.MediaListResponse, error)
	GetMediaFile(ctx context.Context, userId, mediaId uuid.UUID) (*dto.MediaFileResponse, error)
	UpdateMediaFile(ctx context.Context, userId, mediaId uuid.UUID, req *dto.UpdateMediaRequest) (*dto.MediaFileResponse, error)
	DeleteMediaFile(ctx context.Context, userId, mediaId uuid.UUID) error
}

type mediaService struct {
	uowFactory       unitofwork.RepositoryFactory
	store            *storage.LocalStorage
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	logger           logger.ILogger
	baseURL          string
}

func NewMediaService(
	uowFactory unitofwork.RepositoryFactory,
	store *storage.LocalStorage,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
	baseURL string,
) IMediaService {
	return &mediaService{
		uowFactory:       uowFactory,
		store:            store,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		logger:           log,
		baseURL:          baseURL,
	}
}

func (s *mediaService) Upload(ctx context.Context, userId uuid.UUID, files []*multipart.FileHeader) (*dto.UploadResponse, error) {
	if len(files) == 0 {
		return nil, errors.New("validation failed: no files provided")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	responses := make([]*dto.MediaFileResponse, 0, len(files))

	for _, fileHeader := range files {
		saved, err := s.store.Save(fileHeader, userId)
		if err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		media := &entity.MediaFile{
			Id:         uuid.New(),
			UserId:     userId,
			FileName:   fileHeader.Filename,
			FileType:   saved.FileType,
			MimeType:   fileHeader.Header.Get("Content-Type"),
			FilePath:   saved.FilePath,
			FileSize:   saved.FileSize,
			Tags:       []string{},
			UploadedAt: time.Now(),
		}
		if saved.Width > 0 {
			w, h := saved.Width, saved.Height
			media.Width = &w
			media.Height = &h
		}

		if err := uow.MediaFileRepository().Create(ctx, media); err != nil {
			s.store.Delete(saved.FilePath, "")
			return nil, err
		}

		// Thumbnail generation happens off the request path.
		payload, _ := json.Marshal(dto.PublishThumbnailMessage{MediaFileId: media.Id})
		if err := s.publisherService.Publish(ctx, payload); err != nil {
			s.logger.Warn("MediaService", "Failed to queue thumbnail job", map[string]interface{}{
				"media_file_id": media.Id.String(),
				"error":         err.Error(),
			})
		}

		go func(m *entity.MediaFile) {
			evt := events.NewMediaUploaded(map[string]interface{}{
				"media_file_id": m.Id.String(),
				"user_id":       m.UserId.String(),
				"file_type":     m.FileType,
				"file_size":     m.FileSize,
			})
			if err := s.eventPublisher.Publish(context.Background(), evt); err != nil {
				s.logger.Warn("MediaService", "Failed to publish MEDIA_UPLOADED event", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}(media)

		responses = append(responses, s.toMediaResponse(media))
	}

	return &dto.UploadResponse{Files: responses}, nil
}

func (s *mediaService) GetUserMedia(ctx context.Context, userId uuid.UUID, filter MediaListFilter) (*dto.MediaListResponse, error) {
	return s.listMedia(ctx, userId, filter)
}

// GetMediaForUser lists another user's gallery. Anyone but the owner only
// sees public files, whatever the filter asks for.
func (s *mediaService) GetMediaForUser(ctx context.Context, requesterId, ownerId uuid.UUID, filter MediaListFilter) (*dto.MediaListResponse, error) {
	if requesterId != ownerId {
		filter.PublicOnly = true
	}
	return s.listMedia(ctx, ownerId, filter)
}

func (s *mediaService) listMedia(ctx context.Context, userId uuid.UUID, filter MediaListFilter) (*dto.MediaListResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	specs := []specification.Specification{specification.UserOwnedBy{UserID: userId}}
	if filter.FileType != "" {
		specs = append(specs, specification.ByFileType{FileType: filter.FileType})
	}
	if filter.Tag != "" {
		specs = append(specs, specification.HasTag{Tag: filter.Tag})
	}
	if filter.PublicOnly {
		specs = append(specs, specification.PublicOnly{})
	}

	total, err := uow.MediaFileRepository().Count(ctx, specs...)
	if err != nil {
		return nil, err
	}

	specs = append(specs,
		specification.OrderBy{Field: "uploaded_at", Desc: true},
		specification.Pagination{Limit: filter.PageSize, Offset: (filter.Page - 1) * filter.PageSize},
	)

	items, err := uow.MediaFileRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.MediaFileResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, s.toMediaResponse(item))
	}

	totalPages := int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	return &dto.MediaListResponse{
		Items:      responses,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *mediaService) GetMediaFile(ctx context.Context, userId, mediaId uuid.UUID) (*dto.MediaFileResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	media, err := uow.MediaFileRepository().FindOne(ctx, specification.ByID{ID: mediaId})
	if err != nil {
		return nil, err
	}
	if media == nil {
		return nil, errors.New("media file not found")
	}
	if media.UserId != userId && !media.IsPublic {
		return nil, errors.New("media file not found")
	}

	if err := uow.MediaFileRepository().IncrementViewCount(ctx, mediaId); err != nil {
		s.logger.Warn("MediaService", "Failed to increment view count", map[string]interface{}{
			"media_file_id": mediaId.String(),
			"error":         err.Error(),
		})
	} else {
		media.ViewCount++
	}

	return s.toMediaResponse(media), nil
}

func (s *mediaService) UpdateMediaFile(ctx context.Context, userId, mediaId uuid.UUID, req *dto.UpdateMediaRequest) (*dto.MediaFileResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	media, err := uow.MediaFileRepository().FindOne(ctx,
		specification.ByID{ID: mediaId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if media == nil {
		return nil, errors.New("media file not found")
	}

	if req.Description != nil {
		media.Description = req.Description
	}
	if req.Tags != nil {
		media.Tags = req.Tags
	}
	if req.IsPublic != nil {
		media.IsPublic = *req.IsPublic
	}
	now := time.Now()
	media.UpdatedAt = &now

	if err := uow.MediaFileRepository().Update(ctx, media); err != nil {
		return nil, err
	}

	return s.toMediaResponse(media), nil
}

func (s *mediaService) DeleteMediaFile(ctx context.Context, userId, mediaId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	media, err := uow.MediaFileRepository().FindOne(ctx,
		specification.ByID{ID: mediaId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if media == nil {
		return errors.New("media file not found")
	}

	if err := uow.MediaFileRepository().Delete(ctx, mediaId); err != nil {
		return err
	}

	thumb := ""
	if media.ThumbnailPath != nil {
		thumb = *media.ThumbnailPath
	}
	if err := s.store.Delete(media.FilePath, thumb); err != nil {
		s.logger.Warn("MediaService", "Failed to delete stored file", map[string]interface{}{
			"media_file_id": mediaId.String(),
			"error":         err.Error(),
		})
	}

	return nil
}

func (s *mediaService) toMediaResponse(media *entity.MediaFile) *dto.MediaFileResponse {
	resp := &dto.MediaFileResponse{
		Id:          media.Id,
		UserId:      media.UserId,
		FileName:    media.FileName,
		FileType:    media.FileType,
		MimeType:    media.MimeType,
		Url:         fmt.Sprintf("%s/uploads/%s", s.baseURL, media.FilePath),
		FileSize:    media.FileSize,
		Width:       media.Width,
		Height:      media.Height,
		Duration:    media.Duration,
		Description: media.Description,
		Tags:        media.Tags,
		ViewCount:   media.ViewCount,
		LikeCount:   media.LikeCount,
		IsPublic:    media.IsPublic,
		UploadedAt:  media.UploadedAt,
		UpdatedAt:   media.UpdatedAt,
	}
	if media.ThumbnailPath != nil {
		thumbURL := fmt.Sprintf("%s/uploads/%s", s.baseURL, *media.ThumbnailPath)
		resp.ThumbnailUrl = &thumbURL
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	return resp
}
