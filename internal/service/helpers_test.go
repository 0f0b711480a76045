package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/railrules-api/internal/models"
	"github.com/noah-isme/railrules-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Document{}, &models.ChangeLog{}, &models.Notification{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return client
}

func seedUsers(t *testing.T, repo repository.UserRepository, roles ...string) []uint {
	t.Helper()
	ids := make([]uint, 0, len(roles))
	for i, role := range roles {
		user := models.User{
			Name:  fmt.Sprintf("User %d", i+1),
			Email: fmt.Sprintf("user%d@railrules.test", i+1),
			Role:  role,
		}
		require.NoError(t, repo.Create(context.Background(), &user))
		ids = append(ids, user.ID)
	}
	return ids
}

type stubUserRepo struct {
	ids   []uint
	roles map[uint]string
	err   error
}

func (r *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	return nil
}

func (r *stubUserRepo) ListIDsExcept(ctx context.Context, excludedID uint) ([]uint, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]uint, 0, len(r.ids))
	for _, id := range r.ids {
		if id != excludedID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *stubUserRepo) ListIDsByRole(ctx context.Context, role string) ([]uint, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]uint, 0)
	for _, id := range r.ids {
		if r.roles[id] == role {
			out = append(out, id)
		}
	}
	return out, nil
}

// recordingNotificationRepo records created notifications and fails inserts
// for the listed users. Only Create is implemented.
type recordingNotificationRepo struct {
	repository.NotificationRepository
	failFor map[uint]bool
	created []models.Notification
	nextID  uint
}

func (r *recordingNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if r.failFor[notification.UserID] {
		return fmt.Errorf("insert notification for user %d: disk full", notification.UserID)
	}
	r.nextID++
	notification.ID = r.nextID
	r.created = append(r.created, *notification)
	return nil
}

func strPtr(v string) *string {
	return &v
}
