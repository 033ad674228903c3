package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, NewRepo(db).Migrate(context.Background()), "automigrate")
	return db
}

func TestRepo_CreateSessionAndSaveMessages(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	sid, err := repo.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, sid, 26)

	sess, err := repo.GetSession(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.UserID)
	assert.False(t, sess.StartedAt.IsZero())

	require.NoError(t, repo.SaveMessage(ctx, "user-1", sid, Message{Role: RoleUser, Content: "Hello"}))
	require.NoError(t, repo.SaveMessage(ctx, "user-1", sid, Message{Role: RoleModel, Content: "Hi there"}))

	logs, err := repo.ListSessionLogs(ctx, "user-1", sid)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "user", logs[0].Role)
	assert.Equal(t, "Hello", logs[0].Message)
	assert.Equal(t, "ai", logs[1].Role, "model turns are stored as ai")
	assert.Equal(t, "Hi there", logs[1].Message)
}

func TestRepo_FetchHistoryOrderedAcrossSessions(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	s1, err := repo.CreateSession(ctx, "u")
	require.NoError(t, err)
	s2, err := repo.CreateSession(ctx, "u")
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	rows := []ChatLog{
		{SessionID: s2, UserID: "u", Role: "user", Message: "third", CreatedAt: base.Add(3 * time.Minute)},
		{SessionID: s1, UserID: "u", Role: "user", Message: "first", CreatedAt: base.Add(1 * time.Minute)},
		{SessionID: s1, UserID: "u", Role: "ai", Message: "second", CreatedAt: base.Add(2 * time.Minute)},
		{SessionID: s1, UserID: "other", Role: "user", Message: "not mine", CreatedAt: base},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	got, err := repo.FetchHistory(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleModel, Content: "second"},
		{Role: RoleUser, Content: "third"},
	}, got)
}

func TestRepo_RejectsEmptyUser(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	_, err := repo.CreateSession(context.Background(), " ")
	require.ErrorIs(t, err, ErrEmptyUserID)
	require.ErrorIs(t, repo.SaveMessage(context.Background(), "", "s", Message{Role: RoleUser, Content: "x"}), ErrEmptyUserID)
}

func TestRoleMapping(t *testing.T) {
	assert.Equal(t, "ai", StoredRole(RoleModel))
	assert.Equal(t, "user", StoredRole(RoleUser))
	assert.Equal(t, RoleModel, RoleFromStored("ai"))
	assert.Equal(t, RoleModel, RoleFromStored("model"))
	assert.Equal(t, RoleUser, RoleFromStored("user"))
}

func TestController_WithSQLStore(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	sess := &fakeSession{chunks: []string{"I ", "hear ", "you."}}
	c := NewController(repo, &fakeOpener{session: sess}, Options{})
	ctx := context.Background()

	require.NoError(t, c.SignIn(ctx, "alice"))
	require.NoError(t, c.Send(ctx, "I feel anxious today", nil))

	got, err := repo.FetchHistory(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "I feel anxious today"},
		{Role: RoleModel, Content: "I hear you."},
	}, got)
	assert.Equal(t, got, c.State().Messages[1:])
}
