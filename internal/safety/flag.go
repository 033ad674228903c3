package safety

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/kai-companion/internal/chat"
	"github.com/suPer8Hu/kai-companion/internal/metrics"
	"github.com/suPer8Hu/kai-companion/internal/store/rabbitmq"
	"gorm.io/gorm"
)

type Flag struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(36);not null;index" json:"session_id"`
	UserID    string    `gorm:"type:varchar(255);not null;index" json:"user_id"`
	Labels    string    `gorm:"type:varchar(255);not null" json:"labels"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Reviewed  bool      `gorm:"not null;default:false;index" json:"reviewed"`
	SentAt    time.Time `json:"sent_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (Flag) TableName() string { return "safety_flags" }

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Flag{})
}

func (r *Repo) Create(ctx context.Context, f *Flag) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// ListUnreviewed returns pending flags, oldest first.
func (r *Repo) ListUnreviewed(ctx context.Context, limit int) ([]Flag, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []Flag
	if err := r.db.WithContext(ctx).
		Where("reviewed = ?", false).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

var ErrFlagNotFound = errors.New("safety: flag not found")

func (r *Repo) MarkReviewed(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Model(&Flag{}).
		Where("id = ?", id).
		Update("reviewed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrFlagNotFound
	}
	return nil
}

// Reviewer turns message events into flags.
type Reviewer struct {
	repo *Repo
}

func NewReviewer(repo *Repo) *Reviewer {
	return &Reviewer{repo: repo}
}

// HandleEvent decodes one message event and records a flag when a user
// message matches. Model turns and other event types are ignored. A decode
// error is returned so the delivery can be dead-lettered.
func (rv *Reviewer) HandleEvent(ctx context.Context, body []byte) (*Flag, error) {
	var ev rabbitmq.MessageEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type != rabbitmq.EventMessageSaved || chat.Role(ev.Role) != chat.RoleUser {
		return nil, nil
	}
	labels := Screen(ev.Content)
	if len(labels) == 0 {
		return nil, nil
	}

	f := &Flag{
		SessionID: ev.SessionID,
		UserID:    ev.UserID,
		Labels:    joinLabels(labels),
		Message:   ev.Content,
		SentAt:    ev.CreatedAt,
	}
	if err := rv.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	metrics.SafetyFlags.Inc()
	zerolog.Ctx(ctx).Warn().
		Str("session_id", f.SessionID).
		Str("labels", f.Labels).
		Uint64("flag_id", f.ID).
		Msg("message flagged for review")
	return f, nil
}
