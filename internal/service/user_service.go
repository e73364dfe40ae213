package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tairs07/Media/internal/dto"
	"github.com/Tairs07/Media/internal/repository/specification"
	"github.com/Tairs07/Media/internal/repository/unitofwork"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

type IUserService interface {
	GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error)
	UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
}

type userService struct {
	uowFactory   unitofwork.RepositoryFactory
	profileCache *gocache.Cache
}

func NewUserService(uowFactory unitofwork.RepositoryFactory) IUserService {
	return &userService{
		uowFactory:   uowFactory,
		profileCache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

func profileCacheKey(userId uuid.UUID) string {
	return fmt.Sprintf("profile:%s", userId)
}

func (s *userService) GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error) {
	if cached, found := s.profileCache.Get(profileCacheKey(userId)); found {
		return cached.(*dto.UserProfileResponse), nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	mediaCount, err := uow.MediaFileRepository().Count(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}

	profile := &dto.UserProfileResponse{
		Id:         user.Id,
		Username:   user.Username,
		AvatarUrl:  user.AvatarUrl,
		Bio:        user.Bio,
		MediaCount: mediaCount,
		CreatedAt:  user.CreatedAt,
	}

	s.profileCache.Set(profileCacheKey(userId), profile, gocache.DefaultExpiration)
	return profile, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	if req.Email != nil && *req.Email != user.Email {
		existing, _ := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: *req.Email})
		if existing != nil && existing.Id != userId {
			return nil, errors.New("email already registered")
		}
		user.Email = *req.Email
	}
	if req.AvatarUrl != nil {
		user.AvatarUrl = req.AvatarUrl
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	now := time.Now()
	user.UpdatedAt = &now

	if err := uow.UserRepository().Update(ctx, user); err != nil {
		return nil, err
	}

	s.profileCache.Delete(profileCacheKey(userId))
	return toUserResponse(user), nil
}
