package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/counseling-api/internal/models"
)

type sweepScheduleReader interface {
	ListElapsedUnprocessed(ctx context.Context, now time.Time, limit int) ([]models.Schedule, error)
	ListCompletedWithoutNotes(ctx context.Context, cutoff time.Time, limit int) ([]models.Schedule, error)
}

type sessionConsumer interface {
	CompleteScheduleAndConsume(ctx context.Context, scheduleID string) (*models.Schedule, *models.Mapping, error)
}

// SweeperConfig governs the completion sweeper loop.
type SweeperConfig struct {
	Interval      time.Duration
	BatchSize     int
	ReminderGrace time.Duration
}

// SweepResult summarises one sweeper run.
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Reminders int `json:"reminders"`
}

// SweeperService periodically completes elapsed schedules and consumes one
// session per completion. It is the only path that decrements the ledger, so
// a session is consumed exactly once no matter how often a sweep runs.
type SweeperService struct {
	schedules sweepScheduleReader
	ledger    sessionConsumer
	notify    notifier
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       SweeperConfig

	running  sync.Mutex
	remindMu sync.Mutex
	reminded map[string]struct{}
}

// NewSweeperService builds a SweeperService with sane defaults.
func NewSweeperService(
	schedules sweepScheduleReader,
	ledger sessionConsumer,
	notify notifier,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg SweeperConfig,
) *SweeperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.ReminderGrace <= 0 {
		cfg.ReminderGrace = 30 * time.Minute
	}
	return &SweeperService{
		schedules: schedules,
		ledger:    ledger,
		notify:    notify,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		reminded:  make(map[string]struct{}),
	}
}

// Start launches the sweep loop until the context is cancelled.
func (s *SweeperService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		s.logger.Info("completion sweeper started", zap.Duration("interval", s.cfg.Interval))
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("completion sweeper stopped")
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil {
					s.logger.Error("sweep run failed", zap.Error(err))
				}
			}
		}
	}()
}

// RunOnce executes a single sweep. Runs are single-flight: a tick arriving
// while the previous sweep is still working is skipped. Each schedule is
// processed in its own transaction; one failure never stalls the batch.
func (s *SweeperService) RunOnce(ctx context.Context) (SweepResult, error) {
	if !s.running.TryLock() {
		s.logger.Debug("sweep already in progress, skipping tick")
		return SweepResult{}, nil
	}
	defer s.running.Unlock()

	started := time.Now()
	now := started.UTC()
	var result SweepResult

	elapsed, err := s.schedules.ListElapsedUnprocessed(ctx, now, s.cfg.BatchSize)
	if err != nil {
		s.metrics.RecordSweep(time.Since(started), 0, 1)
		return result, fmt.Errorf("list elapsed schedules: %w", err)
	}
	result.Scanned = len(elapsed)

	for _, candidate := range elapsed {
		schedule, mapping, err := s.ledger.CompleteScheduleAndConsume(ctx, candidate.ID)
		if err != nil {
			result.Failed++
			s.logger.Error("failed to complete schedule",
				zap.String("schedule_id", candidate.ID), zap.Error(err))
			continue
		}
		if schedule == nil {
			// Raced with a cancel or an earlier sweep.
			result.Skipped++
			continue
		}
		result.Completed++

		s.notify.Notify(ctx, models.Notification{
			RecipientID: schedule.ClientID,
			Kind:        models.NotifySessionCompleted,
			Subject:     "Session completed",
			Body:        fmt.Sprintf("Your consultation on %s was completed; %d sessions remain.", schedule.Date, mapping.RemainingSessions),
			Metadata:    map[string]string{"schedule_id": schedule.ID, "mapping_id": mapping.ID},
		})
		if mapping.Status == models.MappingStatusSessionsExhausted {
			s.notify.Notify(ctx, models.Notification{
				RecipientID: mapping.ClientID,
				Kind:        models.NotifySessionsExhausted,
				Subject:     "Sessions exhausted",
				Body:        "Your package has no remaining sessions. Request an extension to continue.",
				Metadata:    map[string]string{"mapping_id": mapping.ID},
			})
		}
	}

	result.Reminders = s.sendReminders(ctx, now)

	s.metrics.RecordSweep(time.Since(started), result.Completed, result.Failed)
	if result.Completed > 0 || result.Failed > 0 {
		s.logger.Info("sweep finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("completed", result.Completed),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
			zap.Int("reminders", result.Reminders))
	}
	return result, nil
}

// sendReminders nudges consultants about completed consultations that still
// have no consultation note once the grace period has passed. Each schedule
// is reminded at most once per process lifetime.
func (s *SweeperService) sendReminders(ctx context.Context, now time.Time) int {
	noteless, err := s.schedules.ListCompletedWithoutNotes(ctx, now.Add(-s.cfg.ReminderGrace), s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("failed to list completed schedules without notes", zap.Error(err))
		return 0
	}

	sent := 0
	for _, schedule := range noteless {
		s.remindMu.Lock()
		_, already := s.reminded[schedule.ID]
		if !already {
			s.reminded[schedule.ID] = struct{}{}
		}
		s.remindMu.Unlock()
		if already {
			continue
		}

		s.notify.Notify(ctx, models.Notification{
			RecipientID: schedule.ConsultantID,
			Kind:        models.NotifyNoteReminder,
			Subject:     "Consultation note missing",
			Body:        fmt.Sprintf("The consultation completed on %s at %s has no note yet.", schedule.Date, schedule.StartTime),
			Metadata:    map[string]string{"schedule_id": schedule.ID},
		})
		sent++
	}
	return sent
}
