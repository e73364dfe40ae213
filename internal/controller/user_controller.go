package controller

import (
	"github.com/Tairs07/Media/internal/dto"
	"github.com/Tairs07/Media/internal/pkg/serverutils"
	"github.com/Tairs07/Media/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IUserController interface {
	RegisterRoutes(r fiber.Router)
	GetProfile(ctx *fiber.Ctx) error
	GetUserMedia(ctx *fiber.Ctx) error
	UpdateProfile(ctx *fiber.Ctx) error
}

type userController struct {
	userService  service.IUserService
	mediaService service.IMediaService
}

func NewUserController(userService service.IUserService, mediaService service.IMediaService) IUserController {
	return &userController{
		userService:  userService,
		mediaService: mediaService,
	}
}

func (c *userController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/user/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("profile", c.GetProfile)
	h.Get("profile/:id", c.GetProfile)
	h.Get("profile/:id/media", c.GetUserMedia)
	h.Put("profile", c.UpdateProfile)
}

func (c *userController) GetProfile(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	// Optional path param to view another user's public profile.
	if idParam := ctx.Params("id"); idParam != "" {
		if id, err := uuid.Parse(idParam); err == nil {
			userId = id
		}
	}

	res, err := c.userService.GetProfile(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get profile", res))
}

// GetUserMedia lists a user's gallery; the service keeps private files
// hidden from anyone but the owner.
func (c *userController) GetUserMedia(ctx *fiber.Ctx) error {
	requesterIdStr := ctx.Locals("user_id").(string)
	requesterId, _ := uuid.Parse(requesterIdStr)

	ownerId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	filter := service.MediaListFilter{
		FileType: ctx.Query("type"),
		Tag:      ctx.Query("tag"),
		Page:     ctx.QueryInt("page", 1),
		PageSize: ctx.QueryInt("page_size", 20),
	}

	res, err := c.mediaService.GetMediaForUser(ctx.Context(), requesterId, ownerId, filter)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list user media", res))
}

func (c *userController) UpdateProfile(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.UpdateUserRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.userService.UpdateProfile(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update profile", res))
}
