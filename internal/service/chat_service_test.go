package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Tairs07/Media/internal/constant"
	"github.com/Tairs07/Media/internal/dto"
	"github.com/Tairs07/Media/internal/entity"
	"github.com/Tairs07/Media/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStream yields its deltas one by one, then the terminal error.
type scriptedStream struct {
	ctx    context.Context
	deltas []string
	final  error
	idx    int
	closed bool
}

func (s *scriptedStream) Recv() (string, error) {
	if s.ctx != nil && s.ctx.Err() != nil {
		return "", s.ctx.Err()
	}
	if s.idx < len(s.deltas) {
		delta := s.deltas[s.idx]
		s.idx++
		return delta, nil
	}
	if s.final != nil {
		return "", s.final
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

type scriptedProvider struct {
	deltas  []string
	final   error
	openErr error

	gotModel   string
	gotHistory []llm.Message
	stream     *scriptedStream
}

func (p *scriptedProvider) StreamChat(ctx context.Context, model string, history []llm.Message, options ...llm.Option) (llm.Stream, error) {
	p.gotModel = model
	p.gotHistory = history
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.stream = &scriptedStream{ctx: ctx, deltas: p.deltas, final: p.final}
	return p.stream, nil
}

// recordSink collects events and optionally fails or cancels mid-stream.
type recordSink struct {
	events []dto.ChatStreamEvent

	failAfterContent   int // fail the Nth content send, 0 = never
	cancelAfterContent int // cancel the stream context after N content events, 0 = never
	cancel             context.CancelFunc

	contentSeen int
}

func (s *recordSink) Send(event *dto.ChatStreamEvent) error {
	if event.Type == dto.StreamEventContent {
		s.contentSeen++
		if s.failAfterContent > 0 && s.contentSeen >= s.failAfterContent {
			return errors.New("client gone")
		}
	}
	s.events = append(s.events, *event)
	if event.Type == dto.StreamEventContent && s.cancelAfterContent > 0 && s.contentSeen >= s.cancelAfterContent {
		s.cancel()
	}
	return nil
}

func (s *recordSink) eventTypes() []string {
	types := make([]string, 0, len(s.events))
	for _, e := range s.events {
		types = append(types, e.Type)
	}
	return types
}

func newTestChat(factory *fakeFactory, provider llm.StreamProvider) IChatService {
	return NewChatService(factory, provider, nil, nil, nil, nopLogger{}, 0)
}

func seedSession(factory *fakeFactory, userId uuid.UUID, title string) *entity.ChatSession {
	session := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		Model:     constant.DefaultChatModel,
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
	}
	factory.store.sessions = append(factory.store.sessions, session)
	return session
}

func sessionMessages(factory *fakeFactory, sessionId uuid.UUID) []*entity.ChatMessage {
	var out []*entity.ChatMessage
	for _, m := range factory.store.messages {
		if m.ChatSessionId == sessionId {
			out = append(out, m)
		}
	}
	return out
}

func TestStreamMessageHappyPath(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, "my chat")

	provider := &scriptedProvider{deltas: []string{"Hel", "lo ", "世界"}}
	svc := newTestChat(factory, provider)
	sink := &recordSink{}

	err := svc.StreamMessage(context.Background(), userId, session.Id, &dto.SendMessageRequest{Content: "hi"}, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "content", "content", "content", "done"}, sink.eventTypes())

	// Deltas concatenate to exactly the persisted assistant content.
	var rebuilt strings.Builder
	for _, e := range sink.events {
		rebuilt.WriteString(e.Delta)
	}
	msgs := sessionMessages(factory, session.Id)
	require.Len(t, msgs, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, constant.ChatMessageRoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello 世界", msgs[1].Content)
	assert.Equal(t, rebuilt.String(), msgs[1].Content)

	// Token count is characters, not bytes.
	require.NotNil(t, msgs[1].TokenCount)
	assert.Equal(t, 8, *msgs[1].TokenCount)

	done := sink.events[len(sink.events)-1]
	require.NotNil(t, done.MessageId)
	assert.Equal(t, msgs[1].Id, *done.MessageId)
	require.NotNil(t, done.TokenCount)
	assert.Equal(t, 8, *done.TokenCount)

	// Start frame carries the persisted user message id.
	require.NotNil(t, sink.events[0].MessageId)
	assert.Equal(t, msgs[0].Id, *sink.events[0].MessageId)

	assert.True(t, provider.stream.closed)
}

func TestStreamMessageUnknownSession(t *testing.T) {
	factory := newFakeFactory()
	owner := uuid.New()
	session := seedSession(factory, owner, "private")

	svc := newTestChat(factory, &scriptedProvider{deltas: []string{"x"}})
	sink := &recordSink{}

	// Another user cannot reach the session; nothing is persisted.
	err := svc.StreamMessage(context.Background(), uuid.New(), session.Id, &dto.SendMessageRequest{Content: "hi"}, sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Empty(t, sink.events)
	assert.Empty(t, factory.store.messages)
}

func TestStreamMessageUpstreamOpenFailure(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, "my chat")

	provider := &scriptedProvider{openErr: errors.New("connect refused")}
	svc := newTestChat(factory, provider)
	sink := &recordSink{}

	err := svc.StreamMessage(context.Background(), userId, session.Id, &dto.SendMessageRequest{Content: "hi"}, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "error"}, sink.eventTypes())

	// The user turn survives, the assistant turn was never written.
	msgs := sessionMessages(factory, session.Id)
	require.Len(t, msgs, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, msgs[0].Role)
}

func TestStreamMessageUpstreamMidStreamFailure(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, "my chat")

	provider := &scriptedProvider{deltas: []string{"par", "tial"}, final: errors.New("stream reset")}
	svc := newTestChat(factory, provider)
	sink := &recordSink{}

	err := svc.StreamMessage(context.Background(), userId, session.Id, &dto.SendMessageRequest{Content: "hi"}, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "content", "content", "error"}, sink.eventTypes())
	msgs := sessionMessages(factory, session.Id)
	require.Len(t, msgs, 1)
}

func TestStreamMessageCancelledMidStream(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, "my chat")

	provider := &scriptedProvider{deltas: []string{"a", "b", "c", "d", "e"}}
	svc := newTestChat(factory, provider)

	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordSink{cancelAfterContent: 2, cancel: cancel}

	err := svc.StreamMessage(ctx, userId, session.Id, &dto.SendMessageRequest{Content: "hi"}, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "content", "content", "cancelled"}, sink.eventTypes())

	// Partial assistant output is discarded.
	msgs := sessionMessages(factory, session.Id)
	require.Len(t, msgs, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, msgs[0].Role)

	// The session is not touched by a cancelled exchange.
	assert.True(t, factory.store.sessions[0].UpdatedAt.Equal(session.UpdatedAt))
}

func TestStreamMessageAssistantWriteFailure(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, "my chat")

	// The first create is the user turn; the second is the assistant turn.
	factory.store.failMessageCreate = 2

	provider := &scriptedProvider{deltas: []string{"Hel", "lo"}}
	svc := newTestChat(factory, provider)
	sink := &recordSink{}

	err := svc.StreamMessage(context.Background(), userId, session.Id, &dto.SendMessageRequest{Content: "hi"}, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "content", "content", "error"}, sink.eventTypes())

	// The user turn survives the failed assistant write.
	msgs := sessionMessages(factory, session.Id)
	require.Len(t, msgs, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.True(t, factory.store.sessions[0].UpdatedAt.Equal(session.UpdatedAt))
}

func TestStreamMessageCommitFailure(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, "my chat")
	factory.store.failCommit = true

	provider := &scriptedProvider{deltas: []string{"Hel", "lo"}}
	svc := newTestChat(factory, provider)
	sink := &recordSink{}

	err := svc.StreamMessage(context.Background(), userId, session.Id, &dto.SendMessageRequest{Content: "hi"}, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "content", "content", "error"}, sink.eventTypes())

	// Rollback leaves only the user turn and the untouched session row.
	msgs := sessionMessages(factory, session.Id)
	require.Len(t, msgs, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, msgs[0].Role)
	assert.True(t, factory.store.sessions[0].UpdatedAt.Equal(session.UpdatedAt))
}

func TestStreamMessageClientGoneMidStream(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, "my chat")

	provider := &scriptedProvider{deltas: []string{"a", "b", "c"}}
	svc := newTestChat(factory, provider)
	sink := &recordSink{failAfterContent: 2}

	err := svc.StreamMessage(context.Background(), userId, session.Id, &dto.SendMessageRequest{Content: "hi"}, sink)
	require.NoError(t, err)

	// No terminal frame can reach a dead client and nothing more is written.
	assert.Equal(t, []string{"start", "content"}, sink.eventTypes())
	require.Len(t, sessionMessages(factory, session.Id), 1)
}

func TestStreamMessageHistoryWindow(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, "long chat")

	// Seed 14 prior messages; only the most recent ones should go upstream.
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 14; i++ {
		role := constant.ChatMessageRoleUser
		if i%2 == 1 {
			role = constant.ChatMessageRoleAssistant
		}
		factory.store.messages = append(factory.store.messages, &entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: session.Id,
			Role:          role,
			Content:       fmt.Sprintf("m%02d", i),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
	}

	provider := &scriptedProvider{deltas: []string{"ok"}}
	svc := newTestChat(factory, provider)
	sink := &recordSink{}

	err := svc.StreamMessage(context.Background(), userId, session.Id, &dto.SendMessageRequest{Content: "latest"}, sink)
	require.NoError(t, err)

	require.Len(t, provider.gotHistory, constant.HistoryWindowSize)

	// Oldest first, newest (the just-sent user message) last.
	assert.Equal(t, "m05", provider.gotHistory[0].Content)
	assert.Equal(t, "latest", provider.gotHistory[len(provider.gotHistory)-1].Content)
	for i := 1; i < len(provider.gotHistory); i++ {
		assert.NotEqual(t, provider.gotHistory[i-1].Content, provider.gotHistory[i].Content)
	}
}

func TestStreamMessageModelOverride(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, "my chat")

	provider := &scriptedProvider{deltas: []string{"ok"}}
	svc := newTestChat(factory, provider)

	err := svc.StreamMessage(context.Background(), userId, session.Id,
		&dto.SendMessageRequest{Content: "hi", Model: "qwen-max"}, &recordSink{})
	require.NoError(t, err)
	assert.Equal(t, "qwen-max", provider.gotModel)

	msgs := sessionMessages(factory, session.Id)
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[1].Model)
	assert.Equal(t, "qwen-max", *msgs[1].Model)
}

func TestStreamMessageDerivesTitleOnFirstExchange(t *testing.T) {
	longContent := strings.Repeat("甲乙丙", 15) // 45 characters

	tests := []struct {
		name      string
		content   string
		wantTitle string
	}{
		{
			name:      "long first message is truncated by characters",
			content:   longContent,
			wantTitle: string([]rune(longContent)[:constant.SessionTitleMaxLen]) + "...",
		},
		{
			name:      "short first message becomes the title as-is",
			content:   "quick question",
			wantTitle: "quick question",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := newFakeFactory()
			userId := uuid.New()
			session := seedSession(factory, userId, constant.DefaultSessionTitle)

			svc := newTestChat(factory, &scriptedProvider{deltas: []string{"sure"}})
			err := svc.StreamMessage(context.Background(), userId, session.Id,
				&dto.SendMessageRequest{Content: tt.content}, &recordSink{})
			require.NoError(t, err)

			assert.Equal(t, tt.wantTitle, factory.store.sessions[0].Title)
		})
	}
}

func TestStreamMessageKeepsCustomTitle(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, "picked by hand")

	svc := newTestChat(factory, &scriptedProvider{deltas: []string{"sure"}})
	err := svc.StreamMessage(context.Background(), userId, session.Id,
		&dto.SendMessageRequest{Content: "first message"}, &recordSink{})
	require.NoError(t, err)

	assert.Equal(t, "picked by hand", factory.store.sessions[0].Title)
}

func TestStreamMessageNoTitleChangeOnSecondExchange(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, constant.DefaultSessionTitle)

	factory.store.messages = append(factory.store.messages,
		&entity.ChatMessage{
			Id: uuid.New(), ChatSessionId: session.Id,
			Role: constant.ChatMessageRoleUser, Content: "earlier",
			CreatedAt: time.Now().Add(-10 * time.Minute),
		},
		&entity.ChatMessage{
			Id: uuid.New(), ChatSessionId: session.Id,
			Role: constant.ChatMessageRoleAssistant, Content: "reply",
			CreatedAt: time.Now().Add(-9 * time.Minute),
		},
	)

	svc := newTestChat(factory, &scriptedProvider{deltas: []string{"sure"}})
	err := svc.StreamMessage(context.Background(), userId, session.Id,
		&dto.SendMessageRequest{Content: "followup"}, &recordSink{})
	require.NoError(t, err)

	assert.Equal(t, constant.DefaultSessionTitle, factory.store.sessions[0].Title)
}

func TestCreateAndListSessions(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	svc := newTestChat(factory, &scriptedProvider{})

	created, err := svc.CreateSession(context.Background(), userId, &dto.CreateSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, constant.DefaultSessionTitle, created.Title)
	assert.Equal(t, constant.DefaultChatModel, created.Model)

	_, err = svc.CreateSession(context.Background(), userId, &dto.CreateSessionRequest{Title: "named", Model: "qwen-turbo"})
	require.NoError(t, err)

	list, err := svc.GetSessions(context.Background(), userId, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
	require.Len(t, list.Items, 2)

	// Other users see nothing.
	other, err := svc.GetSessions(context.Background(), uuid.New(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), other.Total)
}

func TestDeleteSessionHidesIt(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, "to go")
	svc := newTestChat(factory, &scriptedProvider{})

	require.NoError(t, svc.DeleteSession(context.Background(), userId, session.Id))

	_, err := svc.GetSessionDetail(context.Background(), userId, session.Id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGetSessionDetailOrdersMessages(t *testing.T) {
	factory := newFakeFactory()
	userId := uuid.New()
	session := seedSession(factory, userId, "chat")

	base := time.Now().Add(-time.Hour)
	for i := 2; i >= 0; i-- { // insert out of order
		factory.store.messages = append(factory.store.messages, &entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: session.Id,
			Role:          constant.ChatMessageRoleUser,
			Content:       fmt.Sprintf("m%d", i),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
	}

	svc := newTestChat(factory, &scriptedProvider{})
	detail, err := svc.GetSessionDetail(context.Background(), userId, session.Id)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 3)
	assert.Equal(t, "m0", detail.Messages[0].Content)
	assert.Equal(t, "m2", detail.Messages[2].Content)
}
