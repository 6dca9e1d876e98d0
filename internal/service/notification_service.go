package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/counseling-api/internal/models"
	"github.com/noah-isme/counseling-api/pkg/jobs"
)

const notificationJobType = "notification.deliver"

// NotificationService delivers user notifications through the background
// queue. Enqueue failures are logged, never propagated; business flows must
// not fail because a notification could not be sent.
type NotificationService struct {
	queue   *jobs.Queue
	logger  *zap.Logger
	metrics *MetricsService
}

// NewNotificationService builds the gateway and its delivery queue.
func NewNotificationService(cfg jobs.QueueConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{logger: logger, metrics: metrics}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.deliver, cfg)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues a notification for asynchronous delivery.
func (s *NotificationService) Notify(ctx context.Context, notification models.Notification) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    notificationJobType,
		Payload: notification,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("notification enqueue failed",
			zap.String("kind", string(notification.Kind)),
			zap.String("recipient_id", notification.RecipientID),
			zap.Error(err))
	}
}

// deliver is the queue handler. Delivery is currently a structured log line;
// TODO: plug in the mail sender once the SMTP relay is provisioned.
func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("notification job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	s.logger.Info("notification delivered",
		zap.String("kind", string(notification.Kind)),
		zap.String("recipient_id", notification.RecipientID),
		zap.String("subject", notification.Subject))
	s.metrics.RecordNotification()
	return nil
}
