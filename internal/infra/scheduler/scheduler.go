package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// UploadMonitor is the subset of app.UploadMonitor driven by the scheduler.
type UploadMonitor interface {
	Poll(ctx context.Context) error
	PruneNotified(ctx context.Context) error
}

// Options configure the poll and cleanup jobs.
type Options struct {
	PollSpec    string        // e.g., "@every 10s"
	CleanupSpec string        // e.g., "@every 1h"
	JobTimeout  time.Duration // upper bound for a single job run
	Location    *time.Location
}

type MonitorScheduler struct {
	cronEngine  *cron.Cron
	monitor     UploadMonitor
	logger      *logrus.Entry
	pollSpec    string
	cleanupSpec string
	jobTimeout  time.Duration
}

func NewMonitorScheduler(monitor UploadMonitor, logger *logrus.Entry, opts Options) *MonitorScheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = time.Minute
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	cronLogger := cron.PrintfLogger(logger)
	return &MonitorScheduler{
		cronEngine: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		monitor:     monitor,
		logger:      logger,
		pollSpec:    opts.PollSpec,
		cleanupSpec: opts.CleanupSpec,
		jobTimeout:  opts.JobTimeout,
	}
}

// Start runs one poll right away and then hands both jobs to cron.
func (s *MonitorScheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting monitor scheduler...")

	if _, err := s.cronEngine.AddFunc(s.pollSpec, func() { s.runPoll(ctx) }); err != nil {
		return fmt.Errorf("add poll job %q: %w", s.pollSpec, err)
	}
	if _, err := s.cronEngine.AddFunc(s.cleanupSpec, func() { s.runCleanup(ctx) }); err != nil {
		return fmt.Errorf("add cleanup job %q: %w", s.cleanupSpec, err)
	}

	s.runPoll(ctx)

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"poll_spec":    s.pollSpec,
		"cleanup_spec": s.cleanupSpec,
	}).Info("Monitor scheduler started with jobs.")
	return nil
}

func (s *MonitorScheduler) runPoll(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.jobTimeout)
	defer cancel()
	if err := s.monitor.Poll(ctx); err != nil {
		s.logger.WithError(err).Error("Error in poll job")
	}
}

func (s *MonitorScheduler) runCleanup(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.jobTimeout)
	defer cancel()
	if err := s.monitor.PruneNotified(ctx); err != nil {
		s.logger.WithError(err).Error("Error in cleanup job")
	}
}

func (s *MonitorScheduler) Stop() {
	s.logger.Info("Stopping monitor scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Monitor scheduler gracefully stopped.")
}
