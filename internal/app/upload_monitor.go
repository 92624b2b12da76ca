// internal/app/upload_monitor.go
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"airdc_upload_monitor/internal/domain/notification"
	domainTelegram "airdc_upload_monitor/internal/domain/telegram"
	"airdc_upload_monitor/internal/domain/transfer"
	"airdc_upload_monitor/internal/infra/metrics"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// ActiveUpload is a tracked upload as seen in the latest poll.
type ActiveUpload struct {
	Key    string
	Name   string
	Status string
}

// MonitorOptions tune an UploadMonitor. Zero values fall back to defaults.
type MonitorOptions struct {
	ChatID       string
	Location     *time.Location
	ErrorBackoff time.Duration
	Detailed     bool
	Metrics      *metrics.Metrics
	Logger       *logrus.Entry
	Now          func() time.Time
}

// UploadMonitor detects new uploads between polls and announces them on Telegram.
type UploadMonitor struct {
	fetcher        transfer.Fetcher
	history        notification.Repository
	telegramClient domainTelegram.Client
	chatID         string
	location       *time.Location
	errorBackoff   time.Duration
	detailed       bool
	metrics        *metrics.Metrics
	logger         *logrus.Entry
	now            func() time.Time

	// pollMu serializes Poll and PruneNotified and guards the poll state below.
	pollMu       sync.Mutex
	currentFiles map[string]struct{}
	initialScan  bool
	polled       bool
	backoffUntil time.Time

	// mu guards active. Writers also hold pollMu.
	mu     sync.Mutex
	active map[string]ActiveUpload
}

func NewUploadMonitor(
	fetcher transfer.Fetcher,
	history notification.Repository,
	tc domainTelegram.Client,
	opts MonitorOptions,
) *UploadMonitor {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &UploadMonitor{
		fetcher:        fetcher,
		history:        history,
		telegramClient: tc,
		chatID:         opts.ChatID,
		location:       opts.Location,
		errorBackoff:   opts.ErrorBackoff,
		detailed:       opts.Detailed,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		now:            opts.Now,
		active:         make(map[string]ActiveUpload),
		initialScan:    true,
	}
}

// Poll fetches the transfer list once and notifies about new uploads.
// After a failed fetch, polls are skipped until the error backoff elapses.
func (m *UploadMonitor) Poll(ctx context.Context) error {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	now := m.now()
	if now.Before(m.backoffUntil) {
		m.logger.WithField("resume_at", m.backoffUntil.Format(time.RFC3339)).Debug("Skipping poll during error backoff")
		m.metrics.ObservePoll(metrics.ResultSkipped)
		return nil
	}

	transfers, err := m.fetcher.ListTransfers(ctx)
	if err != nil {
		m.backoffUntil = now.Add(m.errorBackoff)
		m.metrics.ObservePoll(metrics.ResultError)
		return fmt.Errorf("fetch transfers: %w", err)
	}
	if len(transfers) == 0 {
		m.logger.Debug("No active transfers")
	}

	next := make(map[string]ActiveUpload)
	currentFiles := make(map[string]struct{})
	for _, t := range transfers {
		m.processTransfer(ctx, t, next, currentFiles)
	}

	if m.initialScan {
		m.logger.Info("Initial scan completed")
		m.initialScan = false
	}

	// active is only replaced under pollMu, so reading it here needs no mu.
	for key, upload := range m.active {
		if _, ok := next[key]; ok {
			continue
		}
		if upload.Status != transfer.StatusFinished {
			m.logger.WithField("transfer", key).Info("Transfer completed or cancelled")
		}
	}

	m.mu.Lock()
	m.active = next
	m.mu.Unlock()

	m.currentFiles = currentFiles
	m.polled = true
	m.metrics.SetActiveUploads(len(next))
	m.refreshHistoryGauge(ctx)
	m.metrics.ObservePoll(metrics.ResultSuccess)
	return nil
}

func (m *UploadMonitor) processTransfer(ctx context.Context, t transfer.Transfer, next map[string]ActiveUpload, currentFiles map[string]struct{}) {
	logCtx := m.logger.WithFields(logrus.Fields{"transfer_id": string(t.ID), "name": t.DisplayName()})
	if m.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		if raw, err := json.Marshal(t); err == nil {
			logCtx.WithField("transfer", string(raw)).Debug("Processing transfer")
		}
	}

	if !t.IsUpload() {
		logCtx.Debug("Not an upload, ignoring")
		return
	}
	if t.Ignored() {
		logCtx.Debug("Ignoring transfer")
		return
	}

	name := t.DisplayName()
	key := t.Key()
	status := t.StatusID()
	currentFiles[name] = struct{}{}
	next[key] = ActiveUpload{Key: key, Name: name, Status: status}

	if m.initialScan {
		if status == transfer.StatusFinished {
			logCtx.Debug("Ignoring upload already finished during initial scan")
			if err := m.history.MarkNotified(ctx, name, m.now()); err != nil {
				logCtx.WithError(err).Error("Failed to record finished upload in history")
			}
			return
		}
		logCtx.Info("In-progress upload detected during initial scan")
	}

	notified, err := m.history.IsNotified(ctx, name)
	if err != nil {
		logCtx.WithError(err).Error("Failed to read notification history, will retry next poll")
		return
	}
	if notified {
		return
	}

	logCtx.Info("New upload detected")
	m.metrics.UploadDetected()

	message := FormatUploadMessage(t, m.now().In(m.location), m.detailed)
	if err := m.telegramClient.SendMessage(m.chatID, message, &telebot.SendOptions{ParseMode: telebot.ModeHTML}); err != nil {
		m.metrics.ObserveNotification(metrics.ResultError)
		logCtx.WithError(err).Error("Failed to send upload notification")
		return
	}
	m.metrics.ObserveNotification(metrics.ResultSuccess)
	logCtx.Info("Upload notification sent")

	if err := m.history.MarkNotified(ctx, name, m.now()); err != nil {
		logCtx.WithError(err).Error("Failed to record notification in history")
	}
}

// PruneNotified drops history entries for files absent from the latest
// successful poll. It does nothing before the first successful poll.
func (m *UploadMonitor) PruneNotified(ctx context.Context) error {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	if !m.polled {
		m.logger.Debug("No successful poll yet, skipping history cleanup")
		return nil
	}

	names := make([]string, 0, len(m.currentFiles))
	for name := range m.currentFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	removed, err := m.history.Retain(ctx, names)
	if err != nil {
		return fmt.Errorf("prune notification history: %w", err)
	}
	remaining := m.refreshHistoryGauge(ctx)
	m.logger.WithFields(logrus.Fields{"removed": removed, "remaining": remaining}).Debug("Cleaned up old notifications")
	return nil
}

// ActiveUploads returns the uploads tracked after the latest poll, sorted by key.
// It does not wait for a poll in progress.
func (m *UploadMonitor) ActiveUploads() []ActiveUpload {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ActiveUpload, 0, len(m.active))
	for _, upload := range m.active {
		out = append(out, upload)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SendTestNotification sends a fixed message to the configured chat.
func (m *UploadMonitor) SendTestNotification(_ context.Context) error {
	message := FormatTestMessage(m.now().In(m.location))
	if err := m.telegramClient.SendMessage(m.chatID, message, &telebot.SendOptions{ParseMode: telebot.ModeHTML}); err != nil {
		m.metrics.ObserveNotification(metrics.ResultError)
		return fmt.Errorf("send test notification: %w", err)
	}
	m.metrics.ObserveNotification(metrics.ResultSuccess)
	return nil
}

func (m *UploadMonitor) refreshHistoryGauge(ctx context.Context) int {
	n, err := m.history.Count(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to count notification history")
		return 0
	}
	m.metrics.SetNotifiedFiles(n)
	return n
}
