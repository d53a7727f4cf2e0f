package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"messagely/internal/common"
	"messagely/internal/domain/model"
)

// memoryStore keeps users and messages in process memory. It backs
// STORAGE_DRIVER=memory and the service tests.
type memoryStore struct {
	mu       sync.RWMutex
	users    map[string]model.User
	messages []model.Message
	nextID   int64
}

// NewMemoryRepositories returns user and message repositories sharing one
// in-memory store.
func NewMemoryRepositories() (UserRepository, MessageRepository) {
	s := &memoryStore{users: make(map[string]model.User), nextID: 1}
	return &memoryUserRepository{s: s}, &memoryMessageRepository{s: s}
}

type memoryUserRepository struct {
	s *memoryStore
}

func (r *memoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.Username]; exists {
		return fmt.Errorf("username %q: %w", user.Username, common.ErrDuplicateUsername)
	}
	r.s.users[user.Username] = *user
	return nil
}

func (r *memoryUserRepository) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, common.ErrNotFound)
	}
	return &u, nil
}

func (r *memoryUserRepository) List(_ context.Context) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		u.HashedPassword = ""
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (r *memoryUserRepository) UpdateLastLogin(_ context.Context, username string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[username]
	if !ok {
		return fmt.Errorf("user %q: %w", username, common.ErrNotFound)
	}
	u.LastLoginAt = at
	r.s.users[username] = u
	return nil
}

type memoryMessageRepository struct {
	s *memoryStore
}

func (r *memoryMessageRepository) Create(_ context.Context, msg *model.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[msg.FromUsername]; !ok {
		return fmt.Errorf("sender %q: %w", msg.FromUsername, common.ErrUnknownUser)
	}
	if _, ok := r.s.users[msg.ToUsername]; !ok {
		return fmt.Errorf("recipient %q: %w", msg.ToUsername, common.ErrUnknownUser)
	}
	msg.ID = r.s.nextID
	r.s.nextID++
	r.s.messages = append(r.s.messages, *msg)
	return nil
}

// find must be called with the lock held.
func (r *memoryMessageRepository) find(id int64) (int, bool) {
	for i := range r.s.messages {
		if r.s.messages[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func (r *memoryMessageRepository) FindByID(_ context.Context, id int64) (*model.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i, ok := r.find(id)
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, common.ErrNotFound)
	}
	m := r.s.messages[i]
	return &m, nil
}

func (r *memoryMessageRepository) FindDetailByID(_ context.Context, id int64) (*model.MessageDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i, ok := r.find(id)
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, common.ErrNotFound)
	}
	m := r.s.messages[i]
	return &model.MessageDetail{
		ID:     m.ID,
		Body:   m.Body,
		SentAt: m.SentAt,
		ReadAt: m.ReadAt,
		From:   r.summary(m.FromUsername),
		To:     r.summary(m.ToUsername),
	}, nil
}

func (r *memoryMessageRepository) summary(username string) model.UserSummary {
	u := r.s.users[username]
	return u.Summary()
}

func (r *memoryMessageRepository) ListSentBy(_ context.Context, username string) ([]model.SentMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []model.SentMessage{}
	for _, m := range r.s.messages {
		if m.FromUsername != username {
			continue
		}
		out = append(out, model.SentMessage{
			ID: m.ID, Body: m.Body, SentAt: m.SentAt, ReadAt: m.ReadAt,
			To: r.summary(m.ToUsername),
		})
	}
	return out, nil
}

func (r *memoryMessageRepository) ListReceivedBy(_ context.Context, username string) ([]model.ReceivedMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []model.ReceivedMessage{}
	for _, m := range r.s.messages {
		if m.ToUsername != username {
			continue
		}
		out = append(out, model.ReceivedMessage{
			ID: m.ID, Body: m.Body, SentAt: m.SentAt, ReadAt: m.ReadAt,
			From: r.summary(m.FromUsername),
		})
	}
	return out, nil
}

func (r *memoryMessageRepository) MarkRead(_ context.Context, id int64, at time.Time) (*model.ReadReceipt, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i, ok := r.find(id)
	if !ok {
		return nil, false, fmt.Errorf("message %d: %w", id, common.ErrNotFound)
	}
	m := &r.s.messages[i]
	if m.ReadAt != nil {
		return &model.ReadReceipt{ID: m.ID, ReadAt: *m.ReadAt}, false, nil
	}
	readAt := at
	m.ReadAt = &readAt
	return &model.ReadReceipt{ID: m.ID, ReadAt: readAt}, true, nil
}
