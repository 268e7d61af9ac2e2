package retention

import (
	"context"
	"fmt"
	"time"

	"go-psa/internal/config"
	"go-psa/internal/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RetentionService purges import execution logs older than the
// configured retention window on a cron schedule. Executions themselves
// are kept; only their audit log rows age out.
type RetentionService struct {
	LogRepo repository.ExecutionLogRepository
	Config  *config.Config
	Log     *zap.Logger

	scheduler *cron.Cron
}

func NewRetentionService(logRepo repository.ExecutionLogRepository, cfg *config.Config, log *zap.Logger) *RetentionService {
	return &RetentionService{
		LogRepo: logRepo,
		Config:  cfg,
		Log:     log,
	}
}

func (s *RetentionService) Start() error {
	if s.Config.LogRetentionDays <= 0 {
		s.Log.Info("log retention disabled")
		return nil
	}

	s.scheduler = cron.New()
	if _, err := s.scheduler.AddFunc(s.Config.RetentionCron, func() {
		if err := s.Purge(context.Background()); err != nil {
			s.Log.Error("log retention purge failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid retention cron expression %q: %w", s.Config.RetentionCron, err)
	}

	s.scheduler.Start()
	s.Log.Info("log retention scheduled",
		zap.String("cron", s.Config.RetentionCron),
		zap.Int("days", s.Config.LogRetentionDays))
	return nil
}

func (s *RetentionService) Stop() {
	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}
}

func (s *RetentionService) Purge(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -s.Config.LogRetentionDays)
	deleted, err := s.LogRepo.PurgeBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	s.Log.Info("purged old execution logs",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff))
	return nil
}
