package chat

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var ErrEmptyUserID = errors.New("chat: user id is required")

// Repo is the SQL-backed Store.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Migrate creates the sessions and chat_logs tables.
func (r *Repo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Session{}, &ChatLog{})
}

func (r *Repo) CreateSession(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrEmptyUserID
	}
	sid, err := NewSessionID()
	if err != nil {
		return "", err
	}
	s := &Session{ID: sid, UserID: userID}
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return "", err
	}
	return s.ID, nil
}

func (r *Repo) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("id = ?", sessionID).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) SaveMessage(ctx context.Context, userID, sessionID string, m Message) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	return r.db.WithContext(ctx).Create(&ChatLog{
		SessionID: sessionID,
		UserID:    userID,
		Role:      StoredRole(m.Role),
		Message:   m.Content,
	}).Error
}

func (r *Repo) FetchHistory(ctx context.Context, userID string) ([]Message, error) {
	var logs []ChatLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.ToMessage())
	}
	return out, nil
}

// ListSessionLogs returns one session's rows, oldest first.
func (r *Repo) ListSessionLogs(ctx context.Context, userID, sessionID string) ([]ChatLog, error) {
	var logs []ChatLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("id ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

var _ Store = (*Repo)(nil)
