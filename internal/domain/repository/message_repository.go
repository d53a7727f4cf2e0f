package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"messagely/internal/common"
	"messagely/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgForeignKeyViolation = "23503"

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id int64) (*model.Message, error)
	FindDetailByID(ctx context.Context, id int64) (*model.MessageDetail, error)
	ListSentBy(ctx context.Context, username string) ([]model.SentMessage, error)
	ListReceivedBy(ctx context.Context, username string) ([]model.ReceivedMessage, error)
	// MarkRead sets read_at only if it is still null. The returned bool is
	// true when this call performed the Unread -> Read transition.
	MarkRead(ctx context.Context, id int64, at time.Time) (*model.ReadReceipt, bool, error)
}

type pgMessageRepository struct {
	db *sql.DB
}

func NewPgMessageRepository(db *sql.DB) MessageRepository {
	return &pgMessageRepository{db: db}
}

func (r *pgMessageRepository) Create(ctx context.Context, msg *model.Message) error {
	query := `INSERT INTO messages (from_username, to_username, body, sent_at)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	err := r.db.QueryRowContext(ctx, query, msg.FromUsername, msg.ToUsername, msg.Body, msg.SentAt).Scan(&msg.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("message from %q to %q: %w", msg.FromUsername, msg.ToUsername, common.ErrUnknownUser)
		}
		return fmt.Errorf("pgMessageRepository.Create: %w", err)
	}
	return nil
}

func (r *pgMessageRepository) FindByID(ctx context.Context, id int64) (*model.Message, error) {
	query := `SELECT id, from_username, to_username, body, sent_at, read_at
	          FROM messages WHERE id = $1`
	msg := &model.Message{}
	var readAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID, &msg.FromUsername, &msg.ToUsername, &msg.Body, &msg.SentAt, &readAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgMessageRepository.FindByID: %w", err)
	}
	msg.ReadAt = nullTimePtr(readAt)
	return msg, nil
}

func (r *pgMessageRepository) FindDetailByID(ctx context.Context, id int64) (*model.MessageDetail, error) {
	query := `SELECT m.id, m.body, m.sent_at, m.read_at,
	                 f.username, f.first_name, f.last_name, f.phone,
	                 t.username, t.first_name, t.last_name, t.phone
	          FROM messages AS m
	          JOIN users AS f ON f.username = m.from_username
	          JOIN users AS t ON t.username = m.to_username
	          WHERE m.id = $1`
	d := &model.MessageDetail{}
	var readAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.Body, &d.SentAt, &readAt,
		&d.From.Username, &d.From.FirstName, &d.From.LastName, &d.From.Phone,
		&d.To.Username, &d.To.FirstName, &d.To.LastName, &d.To.Phone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgMessageRepository.FindDetailByID: %w", err)
	}
	d.ReadAt = nullTimePtr(readAt)
	return d, nil
}

func (r *pgMessageRepository) ListSentBy(ctx context.Context, username string) ([]model.SentMessage, error) {
	query := `SELECT m.id, m.body, m.sent_at, m.read_at,
	                 t.username, t.first_name, t.last_name, t.phone
	          FROM messages AS m
	          JOIN users AS t ON t.username = m.to_username
	          WHERE m.from_username = $1
	          ORDER BY m.id`
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("pgMessageRepository.ListSentBy: %w", err)
	}
	defer rows.Close()

	out := []model.SentMessage{}
	for rows.Next() {
		var m model.SentMessage
		var readAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.Body, &m.SentAt, &readAt,
			&m.To.Username, &m.To.FirstName, &m.To.LastName, &m.To.Phone); err != nil {
			return nil, fmt.Errorf("pgMessageRepository.ListSentBy scan: %w", err)
		}
		m.ReadAt = nullTimePtr(readAt)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgMessageRepository.ListSentBy rows: %w", err)
	}
	return out, nil
}

func (r *pgMessageRepository) ListReceivedBy(ctx context.Context, username string) ([]model.ReceivedMessage, error) {
	query := `SELECT m.id, m.body, m.sent_at, m.read_at,
	                 f.username, f.first_name, f.last_name, f.phone
	          FROM messages AS m
	          JOIN users AS f ON f.username = m.from_username
	          WHERE m.to_username = $1
	          ORDER BY m.id`
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("pgMessageRepository.ListReceivedBy: %w", err)
	}
	defer rows.Close()

	out := []model.ReceivedMessage{}
	for rows.Next() {
		var m model.ReceivedMessage
		var readAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.Body, &m.SentAt, &readAt,
			&m.From.Username, &m.From.FirstName, &m.From.LastName, &m.From.Phone); err != nil {
			return nil, fmt.Errorf("pgMessageRepository.ListReceivedBy scan: %w", err)
		}
		m.ReadAt = nullTimePtr(readAt)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgMessageRepository.ListReceivedBy rows: %w", err)
	}
	return out, nil
}

func (r *pgMessageRepository) MarkRead(ctx context.Context, id int64, at time.Time) (*model.ReadReceipt, bool, error) {
	query := `UPDATE messages SET read_at = $2
	          WHERE id = $1 AND read_at IS NULL
	          RETURNING id, read_at`
	receipt := &model.ReadReceipt{}
	err := r.db.QueryRowContext(ctx, query, id, at).Scan(&receipt.ID, &receipt.ReadAt)
	if err == nil {
		return receipt, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("pgMessageRepository.MarkRead: %w", err)
	}

	// Either absent or already read.
	msg, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if msg.ReadAt == nil {
		return nil, false, fmt.Errorf("pgMessageRepository.MarkRead: message %d left unread", id)
	}
	return &model.ReadReceipt{ID: msg.ID, ReadAt: *msg.ReadAt}, false, nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
