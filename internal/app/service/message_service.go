package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"messagely/internal/common"
	"messagely/internal/domain/model"
	"messagely/internal/domain/repository"
	"messagely/internal/platform/metrics"

	"github.com/google/uuid"
)

// MessageService creates, reads and marks messages on behalf of an
// authenticated caller, enforcing who may do what.
type MessageService struct {
	messageRepo repository.MessageRepository
	users       *UserService
	events      EventPublisher
	metrics     metrics.Recorder
	logger      *slog.Logger
	now         func() time.Time
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	users *UserService,
	events EventPublisher,
	rec metrics.Recorder,
	logger *slog.Logger,
) *MessageService {
	if events == nil {
		events = NewNopEventPublisher()
	}
	return &MessageService{
		messageRepo: messageRepo,
		users:       users,
		events:      events,
		metrics:     rec,
		logger:      logger,
		now:         time.Now,
	}
}

// SendMessageRequest lists the only fields a client may supply. The sender
// always comes from the verified token.
type SendMessageRequest struct {
	ToUsername string `json:"to_username"`
	Body       string `json:"body"`
}

func (r SendMessageRequest) Validate() error {
	if strings.TrimSpace(r.ToUsername) == "" {
		return common.Invalid("to_username is required")
	}
	if strings.TrimSpace(r.Body) == "" {
		return common.Invalid("body is required")
	}
	return nil
}

func (s *MessageService) Send(ctx context.Context, caller string, req SendMessageRequest) (*model.Message, error) {
	if caller == "" {
		return nil, common.ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ToUsername == caller {
		return nil, common.Invalid("cannot send a message to yourself")
	}

	known, err := s.users.Exists(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, fmt.Errorf("user %q no longer exists: %w", caller, common.ErrUnauthenticated)
	}
	recipient, err := s.users.Exists(ctx, req.ToUsername)
	if err != nil {
		return nil, err
	}
	if !recipient {
		return nil, fmt.Errorf("recipient %q: %w", req.ToUsername, common.ErrUnknownUser)
	}

	msg := &model.Message{
		FromUsername: caller,
		ToUsername:   req.ToUsername,
		Body:         req.Body,
		SentAt:       s.now(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.metrics.RecordMessageSent()
	s.publish(ctx, model.EventMessageSent, msg.ID, msg.FromUsername, msg.ToUsername, msg.SentAt)
	return msg, nil
}

func (s *MessageService) Get(ctx context.Context, caller string, id int64) (*model.MessageDetail, error) {
	detail, err := s.messageRepo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(caller, detail.From.Username, detail.To.Username); err != nil {
		return nil, err
	}
	return detail, nil
}

// MarkRead moves the message to Read. Later calls return the original read_at.
func (s *MessageService) MarkRead(ctx context.Context, caller string, id int64) (*model.ReadReceipt, error) {
	msg, err := s.messageRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canMarkRead(caller, msg.ToUsername); err != nil {
		return nil, err
	}

	receipt, changed, err := s.messageRepo.MarkRead(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.RecordMessageRead()
		s.publish(ctx, model.EventMessageRead, msg.ID, msg.FromUsername, msg.ToUsername, receipt.ReadAt)
	}
	return receipt, nil
}

func (s *MessageService) ListSentBy(ctx context.Context, username string) ([]model.SentMessage, error) {
	return s.messageRepo.ListSentBy(ctx, username)
}

func (s *MessageService) ListReceivedBy(ctx context.Context, username string) ([]model.ReceivedMessage, error) {
	return s.messageRepo.ListReceivedBy(ctx, username)
}

// publish is best-effort: the stored message is authoritative.
func (s *MessageService) publish(ctx context.Context, typ model.MessageEventType, id int64, from, to string, at time.Time) {
	event := model.MessageEvent{
		ID:           uuid.NewString(),
		Type:         typ,
		MessageID:    id,
		FromUsername: from,
		ToUsername:   to,
		At:           at,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "message event publish failed", "type", typ, "message_id", id, "error", err)
	}
}
