package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/railrules-api/internal/models"
)

func seedNotification(t *testing.T, repo NotificationRepository, userID uint, entityID uint, changeLogID uint) models.Notification {
	t.Helper()
	notification := models.Notification{
		UserID:      userID,
		Title:       "UPDATE rule",
		Message:     "fixed typo",
		Type:        models.NotificationWarning,
		EntityType:  models.EntityRule,
		EntityID:    ptrUint(entityID),
		ChangeLogID: ptrUint(changeLogID),
	}
	require.NoError(t, repo.Create(context.Background(), &notification))
	return notification
}

func TestNotificationRepositoryMarkReadByEntityIsScopedAndIdempotent(t *testing.T) {
	db := setupTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	seedNotification(t, repo, 1, 10, 100)
	seedNotification(t, repo, 1, 10, 101)
	seedNotification(t, repo, 1, 11, 102)
	seedNotification(t, repo, 2, 10, 100)

	affected, err := repo.MarkReadByEntity(ctx, 1, models.EntityRule, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), affected)

	affected, err = repo.MarkReadByEntity(ctx, 1, models.EntityRule, 10)
	require.NoError(t, err)
	require.Zero(t, affected)

	unread, err := repo.CountUnread(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), unread)

	otherUser, err := repo.CountUnread(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), otherUser)
}

func TestNotificationRepositoryUnreadChangeLogIDs(t *testing.T) {
	db := setupTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	seedNotification(t, repo, 1, 10, 100)
	seedNotification(t, repo, 1, 10, 101)
	read := seedNotification(t, repo, 1, 10, 102)
	seedNotification(t, repo, 1, 11, 103)

	_, err := repo.MarkRead(ctx, read.ID, 1)
	require.NoError(t, err)

	ids, err := repo.UnreadChangeLogIDs(ctx, 1, models.EntityRule, 10)
	require.NoError(t, err)
	require.Equal(t, []uint{101, 100}, ids)
}

func TestNotificationRepositoryListMarkAndDelete(t *testing.T) {
	db := setupTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	first := seedNotification(t, repo, 1, 10, 100)
	second := seedNotification(t, repo, 1, 11, 101)
	foreign := seedNotification(t, repo, 2, 10, 100)

	updated, err := repo.MarkReadByIDs(ctx, 1, []uint{first.ID, foreign.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), updated)

	unread, err := repo.ListByUser(ctx, NotificationFilter{UserID: 1, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, second.ID, unread[0].ID)

	marked, err := repo.MarkRead(ctx, first.ID, 1)
	require.NoError(t, err)
	require.True(t, marked.IsRead)
	require.NotNil(t, marked.ReadAt)

	_, err = repo.MarkRead(ctx, foreign.ID, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.ErrorIs(t, repo.Delete(ctx, foreign.ID, 1), gorm.ErrRecordNotFound)
	require.NoError(t, repo.Delete(ctx, second.ID, 1))

	removed, err := repo.DeleteAllByUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	remaining, err := repo.ListByUser(ctx, NotificationFilter{UserID: 2})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}
