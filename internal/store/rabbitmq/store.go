package rabbitmq

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/kai-companion/internal/chat"
)

type EventPublisher interface {
	PublishMessage(ctx context.Context, ev MessageEvent) error
}

// PublishingStore announces every saved message. Publishing is best effort:
// the save result is what the caller sees.
type PublishingStore struct {
	chat.Store
	pub EventPublisher
	now func() time.Time
}

func NewPublishingStore(inner chat.Store, pub EventPublisher) *PublishingStore {
	return &PublishingStore{Store: inner, pub: pub, now: time.Now}
}

func (s *PublishingStore) SaveMessage(ctx context.Context, userID, sessionID string, m chat.Message) error {
	if err := s.Store.SaveMessage(ctx, userID, sessionID, m); err != nil {
		return err
	}
	ev := MessageEvent{
		Type:      EventMessageSaved,
		SessionID: sessionID,
		UserID:    userID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.pub.PublishMessage(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("publish message event failed")
	}
	return nil
}
