package chat

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// storedModelRole is how model turns are written to chat_logs.
const storedModelRole = "ai"

// Message is one transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// StoredRole maps the in-memory role to the chat_logs value.
func StoredRole(r Role) string {
	if r == RoleModel {
		return storedModelRole
	}
	return string(r)
}

// RoleFromStored is the inverse of StoredRole. Rows written by older clients
// with "model" or "assistant" are read as model turns.
func RoleFromStored(s string) Role {
	switch s {
	case storedModelRole, string(RoleModel), "assistant":
		return RoleModel
	default:
		return RoleUser
	}
}

// Session is one sign-in of a user.
type Session struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(255);index;not null" json:"user_id"`
	StartedAt time.Time `gorm:"autoCreateTime" json:"started_at"`
}

func (Session) TableName() string { return "sessions" }

// ChatLog is one persisted transcript entry.
type ChatLog struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(36);not null;index" json:"session_id"`
	UserID    string    `gorm:"type:varchar(255);not null;index:idx_chat_logs_user_created,priority:1" json:"user_id"`
	Role      string    `gorm:"type:varchar(8);not null" json:"role"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"index:idx_chat_logs_user_created,priority:2" json:"created_at"`
}

func (ChatLog) TableName() string { return "chat_logs" }

func (l ChatLog) ToMessage() Message {
	return Message{Role: RoleFromStored(l.Role), Content: l.Message}
}
