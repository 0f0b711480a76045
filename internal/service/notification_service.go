package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/railrules-api/internal/dto"
	"github.com/noah-isme/railrules-api/internal/models"
	"github.com/noah-isme/railrules-api/internal/observability"
	"github.com/noah-isme/railrules-api/internal/repository"
)

const (
	notificationBufferSize   = 16
	notificationQueueGroup   = "railrules-notifications"
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// NotificationService persists, fans out and streams user notifications.
type NotificationService interface {
	ChangeDispatcher
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
	List(ctx context.Context, userID uint, query dto.NotificationListQuery) ([]dto.NotificationResponse, error)
	UnreadCount(ctx context.Context, userID uint) (dto.NotificationCountResponse, error)
	MarkRead(ctx context.Context, id uint, userID uint) (dto.NotificationResponse, error)
	MarkReadBulk(ctx context.Context, userID uint, req dto.NotificationBulkReadRequest) (dto.NotificationBulkResponse, error)
	Acknowledge(ctx context.Context, userID uint, entityType models.EntityType, entityID uint) (int64, error)
	Delete(ctx context.Context, id uint, userID uint) error
	DeleteAll(ctx context.Context, userID uint) (dto.NotificationBulkResponse, error)
	Subscribe(userID uint) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

// NotificationOptions configures the cross-node transports and the highlight
// cache shared with the highlight presenter.
type NotificationOptions struct {
	Redis        *redis.Client
	ChannelBase  string
	NATS         *nats.Conn
	HighlightTTL time.Duration
}

type notificationService struct {
	repo        repository.NotificationRepository
	users       repository.UserRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	cache       *highlightCache
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	broker      *notificationBroker
	nodeID      string
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs a notification service.
func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, opts NotificationOptions, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if opts.ChannelBase != "" {
		stream = opts.ChannelBase + ":notifications"
		subject = strings.ReplaceAll(opts.ChannelBase, ":", ".") + ".notifications"
	}
	if validate == nil {
		validate = validator.New()
	}

	serviceLogger := logger.With().Str("component", "notification_service").Logger()
	return &notificationService{
		repo:        repo,
		users:       users,
		redis:       opts.Redis,
		redisStream: stream,
		nats:        opts.NATS,
		natsSubject: subject,
		cache:       newHighlightCache(opts.Redis, opts.HighlightTTL, serviceLogger),
		validator:   validate,
		logger:      serviceLogger,
		tracer:      otel.Tracer("github.com/noah-isme/railrules-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[uint]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

// NotificationTitle renders the title of a change notification, e.g. "UPDATE rule book".
func NotificationTitle(action models.ChangeAction, entityType models.EntityType) string {
	return fmt.Sprintf("%s %s", action, entityType.Label())
}

// NotificationMessage is the change reason, or a generated sentence when none was given.
func NotificationMessage(entry models.ChangeLog) string {
	if reason := strings.TrimSpace(entry.Reason); reason != "" {
		return reason
	}
	return fmt.Sprintf("%s operation performed on %s", entry.Action, entry.EntityType)
}

func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Dispatch creates one notification per recipient of a change. Recipients are
// independent: a failed insert is logged and counted, and the loop moves on.
func (s *notificationService) Dispatch(ctx context.Context, entry models.ChangeLog, audience Audience) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.dispatch", trace.WithAttributes(
		attribute.Int64("changelog.id", int64(entry.ID)),
		attribute.String("changelog.action", string(entry.Action)),
		attribute.String("notification.audience_role", audience.Role),
	))
	defer span.End()

	logger := s.logger.With().
		Uint("changelog_id", entry.ID).
		Str("entity_type", string(entry.EntityType)).
		Uint("entity_id", entry.EntityID).
		Logger()

	recipients, err := s.recipients(spanCtx, entry.AuthorUserID, audience)
	if err != nil {
		span.RecordError(err)
		observability.NotificationFanout().WithLabelValues("lookup_failed").Inc()
		logger.Error().Err(err).Msg("failed to resolve notification recipients")
		return
	}

	title := NotificationTitle(entry.Action, entry.EntityType)
	message := NotificationMessage(entry)
	notificationType := models.NotificationTypeFor(entry.Action)

	delivered := 0
	for _, userID := range recipients {
		entityID := entry.EntityID
		changeLogID := entry.ID
		notification := models.Notification{
			UserID:      userID,
			Title:       title,
			Message:     message,
			Type:        notificationType,
			EntityType:  entry.EntityType,
			EntityID:    &entityID,
			ChangeLogID: &changeLogID,
		}

		if err := s.repo.Create(spanCtx, &notification); err != nil {
			observability.NotificationFanout().WithLabelValues("failed").Inc()
			logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to create change notification")
			continue
		}

		observability.NotificationFanout().WithLabelValues("delivered").Inc()
		delivered++
		s.cache.invalidate(spanCtx, userID, entry.EntityType, entry.EntityID)
		s.deliver(spanCtx, notification)
	}

	logger.Info().
		Int("recipients", len(recipients)).
		Int("delivered", delivered).
		Msg("change notifications dispatched")
}

func (s *notificationService) recipients(ctx context.Context, authorID uint, audience Audience) ([]uint, error) {
	if s.users == nil {
		return nil, errors.New("user repository not configured")
	}
	if role := normalizeRole(audience.Role); role != "" {
		return s.users.ListIDsByRole(ctx, role)
	}
	return s.users.ListIDsExcept(ctx, authorID)
}

func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, err
	}

	cleanTitle := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(payload.Message))
	if cleanTitle == "" || cleanMessage == "" {
		return dto.NotificationResponse{}, ErrEmptyNotification
	}

	model := models.Notification{
		UserID:  payload.UserID,
		Title:   cleanTitle,
		Message: cleanMessage,
		Type:    models.NotificationType(payload.Type),
	}
	if strings.TrimSpace(payload.EntityType) != "" {
		entityType, ok := models.ParseEntityType(payload.EntityType)
		if !ok {
			return dto.NotificationResponse{}, ErrInvalidEntityType
		}
		model.EntityType = entityType
		model.EntityID = payload.EntityID
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(payload.UserID)),
		attribute.String("notification.type", payload.Type),
	))
	defer span.End()

	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	return s.deliver(spanCtx, model), nil
}

func (s *notificationService) List(ctx context.Context, userID uint, query dto.NotificationListQuery) ([]dto.NotificationResponse, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.repo.ListByUser(ctx, repository.NotificationFilter{
		UserID:     userID,
		UnreadOnly: query.UnreadOnly,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uint) (dto.NotificationCountResponse, error) {
	if userID == 0 {
		return dto.NotificationCountResponse{}, ErrUnauthenticated
	}
	total, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return dto.NotificationCountResponse{}, err
	}
	return dto.NotificationCountResponse{Unread: total}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID uint) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(userID)),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	if notification.EntityID != nil {
		s.cache.invalidate(spanCtx, userID, notification.EntityType, *notification.EntityID)
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkReadBulk(ctx context.Context, userID uint, req dto.NotificationBulkReadRequest) (dto.NotificationBulkResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.NotificationBulkResponse{}, err
	}

	affected, err := s.repo.MarkReadByIDs(ctx, userID, req.IDs)
	if err != nil {
		return dto.NotificationBulkResponse{}, err
	}
	if affected > 0 {
		s.cache.invalidateUser(ctx, userID)
	}
	return dto.NotificationBulkResponse{Affected: affected}, nil
}

// Acknowledge marks every unread notification of one entity read for userID.
// Repeating it is harmless and reports zero updates.
func (s *notificationService) Acknowledge(ctx context.Context, userID uint, entityType models.EntityType, entityID uint) (int64, error) {
	if userID == 0 {
		return 0, ErrUnauthenticated
	}
	if !entityType.Valid() {
		return 0, ErrInvalidEntityType
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.acknowledge", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(userID)),
		attribute.String("notification.entity_type", string(entityType)),
		attribute.Int64("notification.entity_id", int64(entityID)),
	))
	defer span.End()

	updated, err := s.repo.MarkReadByEntity(spanCtx, userID, entityType, entityID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	s.cache.invalidate(spanCtx, userID, entityType, entityID)
	return updated, nil
}

func (s *notificationService) Delete(ctx context.Context, id uint, userID uint) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	s.cache.invalidateUser(ctx, userID)
	return nil
}

func (s *notificationService) DeleteAll(ctx context.Context, userID uint) (dto.NotificationBulkResponse, error) {
	if userID == 0 {
		return dto.NotificationBulkResponse{}, ErrUnauthenticated
	}
	affected, err := s.repo.DeleteAllByUser(ctx, userID)
	if err != nil {
		return dto.NotificationBulkResponse{}, err
	}
	s.cache.invalidateUser(ctx, userID)
	return dto.NotificationBulkResponse{Affected: affected}, nil
}

func (s *notificationService) Subscribe(userID uint) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.broker.subscribe(userID, channel)
	observability.NotificationStreamsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(userID, channel)
			observability.NotificationStreamsActive().Dec()
		})
	}

	return channel, cleanup
}

// deliver pushes a stored notification to local subscribers and other nodes.
func (s *notificationService) deliver(ctx context.Context, notification models.Notification) dto.NotificationResponse {
	response := dto.NewNotificationResponse(notification)
	s.broker.broadcast(response.UserID, response)
	if err := s.publish(ctx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification to broker")
	}
	observability.NotificationsPublishedTotal().WithLabelValues(string(response.Type)).Inc()
	return response
}

func (s *notificationService) publish(ctx context.Context, notification dto.NotificationResponse) error {
	if (s.redis == nil || s.redisStream == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	event := notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, notificationQueueGroup, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	notification := event.Notification
	if notification.Type == "" {
		notification.Type = models.NotificationInfo
	}

	s.broker.broadcast(notification.UserID, notification)
}

func (b *notificationBroker) subscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		if _, present := subscribers[ch]; !present {
			return
		}
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

// broadcast never blocks; a full subscriber buffer drops the notification.
func (b *notificationBroker) broadcast(userID uint, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- notification:
		default:
		}
	}
}
