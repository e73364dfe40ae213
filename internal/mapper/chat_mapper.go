package mapper

import (
	"github.com/Tairs07/Media/internal/entity"
	"github.com/Tairs07/Media/internal/model"

	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ChatSessionToModel(e *entity.ChatSession) *model.ChatSession {
	if e == nil {
		return nil
	}
	s := &model.ChatSession{
		Id:        e.Id,
		UserId:    e.UserId,
		Title:     e.Title,
		Model:     e.Model,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.DeletedAt != nil {
		s.DeletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	}
	return s
}

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}
	e := &entity.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		Model:     s.Model,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		e.DeletedAt = &t
		e.IsDeleted = true
	}
	return e
}

func (m *ChatMapper) ChatMessageToModel(e *entity.ChatMessage) *model.ChatMessage {
	if e == nil {
		return nil
	}
	return &model.ChatMessage{
		Id:            e.Id,
		ChatSessionId: e.ChatSessionId,
		Role:          e.Role,
		Content:       e.Content,
		Model:         e.Model,
		TokenCount:    e.TokenCount,
		CreatedAt:     e.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Content:       msg.Content,
		Model:         msg.Model,
		TokenCount:    msg.TokenCount,
		CreatedAt:     msg.CreatedAt,
	}
}
