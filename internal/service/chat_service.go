package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Tairs07/Media/internal/constant"
	"github.com/Tairs07/Media/internal/dto"
	"github.com/Tairs07/Media/internal/entity"
	"github.com/Tairs07/Media/internal/pkg/logger"
	"github.com/Tairs07/Media/internal/repository/specification"
	"github.com/Tairs07/Media/internal/repository/unitofwork"
	"github.com/Tairs07/Media/pkg/events"
	"github.com/Tairs07/Media/pkg/llm"
	pktNats "github.com/Tairs07/Media/pkg/nats"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ChatEventSink receives the relay's client-facing stream events. A Send
// error means the client is gone; the relay stops streaming when that
// happens.
type ChatEventSink interface {
	Send(event *dto.ChatStreamEvent) error
}

type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.ChatSessionResponse, error)
	GetSessions(ctx context.Context, userId uuid.UUID, page, pageSize int) (*dto.SessionListResponse, error)
	GetSessionDetail(ctx context.Context, userId, sessionId uuid.UUID) (*dto.ChatSessionDetailResponse, error)
	UpdateSession(ctx context.Context, userId, sessionId uuid.UUID, req *dto.UpdateSessionRequest) (*dto.ChatSessionResponse, error)
	DeleteSession(ctx context.Context, userId, sessionId uuid.UUID) error
	StreamMessage(ctx context.Context, userId, sessionId uuid.UUID, req *dto.SendMessageRequest, sink ChatEventSink) error
	GetModels(ctx context.Context) []*dto.ModelInfoResponse
}

type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	provider       llm.StreamProvider
	models         []llm.ModelInfo
	redisClient    *redis.Client
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
	dailyLimit     int
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	provider llm.StreamProvider,
	models []llm.ModelInfo,
	redisClient *redis.Client,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
	dailyLimit int,
) IChatService {
	return &chatService{
		uowFactory:     uowFactory,
		provider:       provider,
		models:         models,
		redisClient:    redisClient,
		eventPublisher: eventPublisher,
		logger:         log,
		dailyLimit:     dailyLimit,
	}
}

func (s *chatService) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.ChatSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = constant.DefaultSessionTitle
	}
	model := req.Model
	if model == "" {
		model = constant.DefaultChatModel
	}

	session := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		Model:     model,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	return s.toSessionResponse(ctx, uow, session), nil
}

func (s *chatService) GetSessions(ctx context.Context, userId uuid.UUID, page, pageSize int) (*dto.SessionListResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	owned := specification.UserOwnedBy{UserID: userId}

	total, err := uow.ChatSessionRepository().Count(ctx, owned)
	if err != nil {
		return nil, err
	}

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		owned,
		specification.OrderBy{Field: "updated_at", Desc: true},
		specification.Pagination{Limit: pageSize, Offset: (page - 1) * pageSize},
	)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ChatSessionResponse, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, s.toSessionResponse(ctx, uow, session))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &dto.SessionListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *chatService) GetSessionDetail(ctx context.Context, userId, sessionId uuid.UUID) (*dto.ChatSessionDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := s.findOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	messageResponses := make([]*dto.ChatMessageResponse, 0, len(messages))
	for _, msg := range messages {
		messageResponses = append(messageResponses, toMessageResponse(msg))
	}

	return &dto.ChatSessionDetailResponse{
		Id:        session.Id,
		Title:     session.Title,
		Model:     session.Model,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		Messages:  messageResponses,
	}, nil
}

func (s *chatService) UpdateSession(ctx context.Context, userId, sessionId uuid.UUID, req *dto.UpdateSessionRequest) (*dto.ChatSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := s.findOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	session.Title = strings.TrimSpace(req.Title)
	session.UpdatedAt = time.Now()

	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}

	return s.toSessionResponse(ctx, uow, session), nil
}

func (s *chatService) DeleteSession(ctx context.Context, userId, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.findOwnedSession(ctx, uow, userId, sessionId); err != nil {
		return err
	}

	return uow.ChatSessionRepository().Delete(ctx, sessionId)
}

func (s *chatService) GetModels(ctx context.Context) []*dto.ModelInfoResponse {
	responses := make([]*dto.ModelInfoResponse, 0, len(s.models))
	for _, m := range s.models {
		responses = append(responses, &dto.ModelInfoResponse{
			Name:        m.Name,
			DisplayName: m.DisplayName,
			MaxTokens:   m.MaxTokens,
		})
	}
	return responses
}

// StreamMessage runs one full chat exchange: persist the user turn, stream
// the assistant reply to the sink delta by delta, then persist the completed
// assistant turn. The user message is persisted exactly once per accepted
// request; the assistant message at most once, and only after the upstream
// stream finished cleanly.
func (s *chatService) StreamMessage(ctx context.Context, userId, sessionId uuid.UUID, req *dto.SendMessageRequest, sink ChatEventSink) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	// Ownership check happens before anything is written. A failed request
	// leaves no trace in the conversation.
	session, err := s.findOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return err
	}

	if err := s.checkDailyLimit(ctx, userId); err != nil {
		return err
	}

	userMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		Role:          constant.ChatMessageRoleUser,
		Content:       req.Content,
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, userMessage); err != nil {
		return err
	}

	if err := sink.Send(&dto.ChatStreamEvent{Type: dto.StreamEventStart, MessageId: &userMessage.Id}); err != nil {
		// Client gone before the first frame. The user turn stays persisted.
		return nil
	}

	history, err := s.loadHistory(ctx, uow, sessionId)
	if err != nil {
		s.sendError(sink, "failed to load conversation history")
		return nil
	}

	model := req.Model
	if model == "" {
		model = session.Model
	}
	if model == "" {
		model = constant.DefaultChatModel
	}

	stream, err := s.provider.StreamChat(ctx, model, history)
	if err != nil {
		s.logger.Error("ChatService", "Upstream connection failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		s.sendError(sink, "upstream service unavailable")
		return nil
	}
	defer stream.Close()

	var assembled strings.Builder
	for {
		delta, recvErr := stream.Recv()
		if recvErr != nil {
			if recvErr == io.EOF {
				break
			}
			if ctx.Err() != nil {
				// Client disconnect or request cancellation. Best effort
				// notification; the partial assistant text is discarded.
				sink.Send(&dto.ChatStreamEvent{Type: dto.StreamEventCancelled})
				return nil
			}
			s.logger.Error("ChatService", "Upstream stream failed", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      recvErr.Error(),
			})
			s.sendError(sink, "upstream stream failed")
			return nil
		}
		if delta == "" {
			continue
		}
		assembled.WriteString(delta)
		if err := sink.Send(&dto.ChatStreamEvent{Type: dto.StreamEventContent, Delta: delta}); err != nil {
			return nil
		}
	}

	fullContent := assembled.String()
	tokenCount := utf8.RuneCountInString(fullContent)

	assistantMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		Role:          constant.ChatMessageRoleAssistant,
		Content:       fullContent,
		Model:         &model,
		TokenCount:    &tokenCount,
		CreatedAt:     time.Now(),
	}

	// Assistant turn and session bookkeeping commit together.
	if err := uow.Begin(ctx); err != nil {
		s.sendError(sink, "failed to persist assistant message")
		return nil
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().Create(ctx, assistantMessage); err != nil {
		s.sendError(sink, "failed to persist assistant message")
		return nil
	}

	session.UpdatedAt = time.Now()
	if session.Title == constant.DefaultSessionTitle && len(history) == 1 {
		session.Title = deriveSessionTitle(req.Content)
	}
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		s.sendError(sink, "failed to persist assistant message")
		return nil
	}

	if err := uow.Commit(); err != nil {
		s.sendError(sink, "failed to persist assistant message")
		return nil
	}

	sink.Send(&dto.ChatStreamEvent{
		Type:       dto.StreamEventDone,
		MessageId:  &assistantMessage.Id,
		TokenCount: &tokenCount,
	})

	go func() {
		evt := events.NewChatExchangeCompleted(map[string]interface{}{
			"session_id":           sessionId.String(),
			"user_id":              userId.String(),
			"user_message_id":      userMessage.Id.String(),
			"assistant_message_id": assistantMessage.Id.String(),
			"model":                model,
			"token_count":          tokenCount,
		})
		if err := s.eventPublisher.Publish(context.Background(), evt); err != nil {
			s.logger.Warn("ChatService", "Failed to publish CHAT_EXCHANGE_COMPLETED event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	return nil
}

// loadHistory returns the most recent messages of the session in
// chronological order, capped to the context window.
func (s *chatService) loadHistory(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID) ([]llm.Message, error) {
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: constant.HistoryWindowSize},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		history = append(history, llm.Message{
			Role:    messages[i].Role,
			Content: messages[i].Content,
		})
	}
	return history, nil
}

// checkDailyLimit enforces a per-user daily message quota backed by Redis.
// When Redis is not configured or unreachable the request is allowed.
func (s *chatService) checkDailyLimit(ctx context.Context, userId uuid.UUID) error {
	if s.redisClient == nil || s.dailyLimit <= 0 {
		return nil
	}

	key := fmt.Sprintf("chat:usage:%s:%s", userId, time.Now().Format("20060102"))
	count, err := s.redisClient.Incr(ctx, key).Result()
	if err != nil {
		s.logger.Warn("ChatService", "Daily limit check skipped, Redis unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	if count == 1 {
		s.redisClient.Expire(ctx, key, 24*time.Hour)
	}
	if count > int64(s.dailyLimit) {
		return errors.New("daily message limit reached")
	}
	return nil
}

func (s *chatService) findOwnedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.New("chat session not found")
	}
	return session, nil
}

func (s *chatService) sendError(sink ChatEventSink, message string) {
	sink.Send(&dto.ChatStreamEvent{Type: dto.StreamEventError, Error: message})
}

func (s *chatService) toSessionResponse(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.ChatSession) *dto.ChatSessionResponse {
	resp := &dto.ChatSessionResponse{
		Id:        session.Id,
		Title:     session.Title,
		Model:     session.Model,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}

	count, err := uow.ChatMessageRepository().Count(ctx, specification.ByChatSessionID{ChatSessionID: session.Id})
	if err == nil {
		resp.MessageCount = count
	}

	if count > 0 {
		last, err := uow.ChatMessageRepository().FindOne(ctx,
			specification.ByChatSessionID{ChatSessionID: session.Id},
			specification.OrderBy{Field: "created_at", Desc: true},
		)
		if err == nil && last != nil {
			resp.LastMessageAt = &last.CreatedAt
		}
	}

	return resp
}

// deriveSessionTitle builds a session title from the first user message.
// Titles are capped by character count, not bytes, so multibyte text keeps
// its full leading characters.
func deriveSessionTitle(content string) string {
	trimmed := strings.TrimSpace(content)
	runes := []rune(trimmed)
	if len(runes) <= constant.SessionTitleMaxLen {
		return trimmed
	}
	return string(runes[:constant.SessionTitleMaxLen]) + "..."
}

func toMessageResponse(msg *entity.ChatMessage) *dto.ChatMessageResponse {
	return &dto.ChatMessageResponse{
		Id:         msg.Id,
		SessionId:  msg.ChatSessionId,
		Role:       msg.Role,
		Content:    msg.Content,
		Model:      msg.Model,
		TokenCount: msg.TokenCount,
		CreatedAt:  msg.CreatedAt,
	}
}
