package chat

import "context"

// Store persists sessions and transcript entries. Every operation reports its
// failure; what to do about it is the caller's decision.
type Store interface {
	CreateSession(ctx context.Context, userID string) (string, error)
	// FetchHistory returns the user's messages across all sessions, oldest first.
	FetchHistory(ctx context.Context, userID string) ([]Message, error)
	SaveMessage(ctx context.Context, userID, sessionID string, m Message) error
}
