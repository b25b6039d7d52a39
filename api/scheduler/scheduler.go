// Package scheduler runs the periodic background jobs of the API.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// jobTimeout bounds a single run of any job
const jobTimeout = 2 * time.Minute

// SessionPruneSchedule is when expired cached sessions are dropped
const SessionPruneSchedule = "0 3 * * *"

// Reloader re-fetches the report collection and snapshots it locally
type Reloader interface {
	Reload(ctx context.Context) error
}

// SessionWarmer reloads cached sessions, dropping expired ones
type SessionWarmer interface {
	Warm(ctx context.Context) (int, error)
}

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron       *cron.Cron
	reports    Reloader
	sessions   SessionWarmer
	reload     string
	instanceID string
	log        *zap.SugaredLogger
}

// NewScheduler creates a scheduler that reloads reports on reloadSchedule and
// prunes sessions nightly
func NewScheduler(reports Reloader, sessions SessionWarmer, reloadSchedule string, log *zap.SugaredLogger) *Scheduler {
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		reports:    reports,
		sessions:   sessions,
		reload:     reloadSchedule,
		instanceID: instanceID,
		log:        log,
	}
}

// Start registers the jobs and starts the cron loop. A schedule that does not
// parse is returned as an error and nothing is started.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.reload, s.reloadReports); err != nil {
		return fmt.Errorf("register report reload job: %w", err)
	}
	if s.sessions != nil {
		if _, err := s.cron.AddFunc(SessionPruneSchedule, s.pruneSessions); err != nil {
			return fmt.Errorf("register session prune job: %w", err)
		}
	}
	s.cron.Start()
	s.log.Infow("scheduler started", "instance", s.instanceID, "reload", s.reload)
	return nil
}

// Stop waits for running jobs and stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) reloadReports() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := s.reports.Reload(ctx); err != nil {
		s.log.Errorw("scheduled report reload failed", "instance", s.instanceID, "error", err)
		return
	}
	s.log.Debugw("scheduled report reload done", "duration", time.Since(start))
}

func (s *Scheduler) pruneSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.sessions.Warm(ctx)
	if err != nil {
		s.log.Errorw("scheduled session prune failed", "instance", s.instanceID, "error", err)
		return
	}
	s.log.Infow("sessions pruned", "live", n)
}
