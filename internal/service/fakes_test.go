package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Tairs07/Media/internal/entity"
	"github.com/Tairs07/Media/internal/repository/contract"
	"github.com/Tairs07/Media/internal/repository/specification"
	"github.com/Tairs07/Media/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the database, shared by the fake
// repositories. Specifications are interpreted by type so service-level
// query logic stays observable.
type fakeStore struct {
	mu       sync.Mutex
	users         []*entity.User
	refreshTokens []*entity.RefreshToken
	sessions      []*entity.ChatSession
	messages      []*entity.ChatMessage
	media         []*entity.MediaFile

	// failMessageCreate makes the Nth message Create (1-based) and every
	// one after it fail; 0 disables the hook.
	failMessageCreate int
	messageCreates    int
	failCommit        bool
}

type fakeFactory struct {
	store *fakeStore
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{store: &fakeStore{}}
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

// fakeUow snapshots chat state on Begin so a Rollback after a failed write
// or commit leaves the store as it was, mirroring real transaction scope.
type fakeUow struct {
	store    *fakeStore
	tx       bool
	msgSnap  []*entity.ChatMessage
	sessSnap []*entity.ChatSession
}

func (u *fakeUow) Begin(ctx context.Context) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.tx = true
	u.msgSnap = append([]*entity.ChatMessage(nil), u.store.messages...)
	u.sessSnap = make([]*entity.ChatSession, len(u.store.sessions))
	for i, session := range u.store.sessions {
		s := *session
		u.sessSnap[i] = &s
	}
	return nil
}

func (u *fakeUow) Commit() error {
	if u.store.failCommit {
		return errors.New("commit failed")
	}
	u.tx = false
	return nil
}

func (u *fakeUow) Rollback() error {
	if !u.tx {
		return nil
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.messages = u.msgSnap
	u.store.sessions = u.sessSnap
	u.tx = false
	return nil
}

func (u *fakeUow) UserRepository() contract.UserRepository {
	return &fakeUserRepo{store: u.store}
}

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessionRepo{store: u.store}
}

func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{store: u.store}
}

func (u *fakeUow) MediaFileRepository() contract.MediaFileRepository {
	return &fakeMediaRepo{store: u.store}
}

// querySpec captures the filters the services are expected to build.
type querySpec struct {
	id            *uuid.UUID
	userId        *uuid.UUID
	sessionId     *uuid.UUID
	username      string
	email         string
	identifier    string
	fileType      string
	tag           string
	publicOnly    bool
	orderField    string
	orderDesc     bool
	limit, offset int
}

func parseSpecs(specs []specification.Specification) querySpec {
	q := querySpec{limit: -1}
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			id := s.ID
			q.id = &id
		case specification.UserOwnedBy:
			id := s.UserID
			q.userId = &id
		case specification.ByChatSessionID:
			id := s.ChatSessionID
			q.sessionId = &id
		case specification.ByUsername:
			q.username = s.Username
		case specification.ByEmail:
			q.email = s.Email
		case specification.ByUsernameOrEmail:
			q.identifier = s.Identifier
		case specification.ByFileType:
			q.fileType = s.FileType
		case specification.HasTag:
			q.tag = s.Tag
		case specification.PublicOnly:
			q.publicOnly = true
		case specification.OrderBy:
			q.orderField = s.Field
			q.orderDesc = s.Desc
		case specification.Pagination:
			q.limit = s.Limit
			q.offset = s.Offset
		}
	}
	return q
}

// --- users ---

type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u := *user
	r.store.users = append(r.store.users, &u)
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, existing := range r.store.users {
		if existing.Id == user.Id {
			u := *user
			r.store.users[i] = &u
			return nil
		}
	}
	return errors.New("user not found")
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q := parseSpecs(specs)
	for _, user := range r.store.users {
		if q.id != nil && user.Id != *q.id {
			continue
		}
		if q.username != "" && user.Username != q.username {
			continue
		}
		if q.email != "" && user.Email != q.email {
			continue
		}
		if q.identifier != "" && user.Username != q.identifier && user.Email != q.identifier {
			continue
		}
		u := *user
		return &u, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.users)), nil
}

func (r *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t := *token
	r.store.refreshTokens = append(r.store.refreshTokens, &t)
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, token := range r.store.refreshTokens {
		if token.TokenHash == tokenHash {
			t := *token
			return &t, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, token := range r.store.refreshTokens {
		if token.Id == id && token.RevokedAt == nil {
			now := time.Now()
			token.RevokedAt = &now
		}
	}
	return nil
}

// --- chat sessions ---

type fakeSessionRepo struct {
	store *fakeStore
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s := *session
	r.store.sessions = append(r.store.sessions, &s)
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, existing := range r.store.sessions {
		if existing.Id == session.Id {
			s := *session
			r.store.sessions[i] = &s
			return nil
		}
	}
	return errors.New("session not found")
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.sessions {
		if existing.Id == id {
			existing.IsDeleted = true
			return nil
		}
	}
	return errors.New("session not found")
}

func (r *fakeSessionRepo) matches(session *entity.ChatSession, q querySpec) bool {
	if session.IsDeleted {
		return false
	}
	if q.id != nil && session.Id != *q.id {
		return false
	}
	if q.userId != nil && session.UserId != *q.userId {
		return false
	}
	return true
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q := parseSpecs(specs)
	for _, session := range r.store.sessions {
		if r.matches(session, q) {
			s := *session
			return &s, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q := parseSpecs(specs)
	var out []*entity.ChatSession
	for _, session := range r.store.sessions {
		if r.matches(session, q) {
			s := *session
			out = append(out, &s)
		}
	}
	if q.orderField == "updated_at" {
		sort.SliceStable(out, func(i, j int) bool {
			if q.orderDesc {
				return out[i].UpdatedAt.After(out[j].UpdatedAt)
			}
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		})
	}
	return paginate(out, q), nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q := parseSpecs(specs)
	var n int64
	for _, session := range r.store.sessions {
		if r.matches(session, q) {
			n++
		}
	}
	return n, nil
}

// --- chat messages ---

type fakeMessageRepo struct {
	store *fakeStore
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.messageCreates++
	if r.store.failMessageCreate != 0 && r.store.messageCreates >= r.store.failMessageCreate {
		return errors.New("insert failed")
	}
	m := *message
	r.store.messages = append(r.store.messages, &m)
	return nil
}

func (r *fakeMessageRepo) matches(message *entity.ChatMessage, q querySpec) bool {
	if q.id != nil && message.Id != *q.id {
		return false
	}
	if q.sessionId != nil && message.ChatSessionId != *q.sessionId {
		return false
	}
	return true
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q := parseSpecs(specs)
	var out []*entity.ChatMessage
	for _, message := range r.store.messages {
		if r.matches(message, q) {
			m := *message
			out = append(out, &m)
		}
	}
	if q.orderField == "created_at" {
		sort.SliceStable(out, func(i, j int) bool {
			if q.orderDesc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	}
	return paginate(out, q), nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q := parseSpecs(specs)
	var n int64
	for _, message := range r.store.messages {
		if r.matches(message, q) {
			n++
		}
	}
	return n, nil
}

// --- media files ---

type fakeMediaRepo struct {
	store *fakeStore
}

func (r *fakeMediaRepo) Create(ctx context.Context, file *entity.MediaFile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	f := *file
	r.store.media = append(r.store.media, &f)
	return nil
}

func (r *fakeMediaRepo) Update(ctx context.Context, file *entity.MediaFile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, existing := range r.store.media {
		if existing.Id == file.Id {
			f := *file
			r.store.media[i] = &f
			return nil
		}
	}
	return errors.New("media file not found")
}

func (r *fakeMediaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, existing := range r.store.media {
		if existing.Id == id {
			r.store.media = append(r.store.media[:i], r.store.media[i+1:]...)
			return nil
		}
	}
	return errors.New("media file not found")
}

func (r *fakeMediaRepo) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.media {
		if existing.Id == id {
			existing.ViewCount++
			return nil
		}
	}
	return errors.New("media file not found")
}

func (r *fakeMediaRepo) matches(file *entity.MediaFile, q querySpec) bool {
	if q.id != nil && file.Id != *q.id {
		return false
	}
	if q.userId != nil && file.UserId != *q.userId {
		return false
	}
	if q.fileType != "" && file.FileType != q.fileType {
		return false
	}
	if q.publicOnly && !file.IsPublic {
		return false
	}
	if q.tag != "" {
		found := false
		for _, tag := range file.Tags {
			if tag == q.tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *fakeMediaRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MediaFile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q := parseSpecs(specs)
	for _, file := range r.store.media {
		if r.matches(file, q) {
			f := *file
			return &f, nil
		}
	}
	return nil, nil
}

func (r *fakeMediaRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MediaFile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q := parseSpecs(specs)
	var out []*entity.MediaFile
	for _, file := range r.store.media {
		if r.matches(file, q) {
			f := *file
			out = append(out, &f)
		}
	}
	return paginate(out, q), nil
}

func (r *fakeMediaRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q := parseSpecs(specs)
	var n int64
	for _, file := range r.store.media {
		if r.matches(file, q) {
			n++
		}
	}
	return n, nil
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func paginate[T any](items []T, q querySpec) []T {
	if q.offset > 0 {
		if q.offset >= len(items) {
			return nil
		}
		items = items[q.offset:]
	}
	if q.limit >= 0 && q.limit < len(items) {
		items = items[:q.limit]
	}
	return items
}
