package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"airdc_upload_monitor/internal/app"
	"airdc_upload_monitor/internal/infra/airdc"
	"airdc_upload_monitor/internal/infra/config"
	idb "airdc_upload_monitor/internal/infra/database"
	"airdc_upload_monitor/internal/infra/logger"
	"airdc_upload_monitor/internal/infra/metrics"
	"airdc_upload_monitor/internal/infra/scheduler"
	"airdc_upload_monitor/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(execute(context.Background(), newRootCommand()))
}

// execute runs root and returns the process exit code. Errors are logged
// because cobra's own error output is silenced.
func execute(ctx context.Context, root *cobra.Command) int {
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Log.WithError(err).Error("Command failed")
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "airdc-upload-monitor",
		Short:         "Announce new AirDC++ uploads on Telegram",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "test-notification",
		Short: "Send a test message to the configured Telegram chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendTestNotification(cmd.Context())
		},
	})
	return root
}

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Error("Could not load application configuration")
		return nil, err
	}
	logger.Init(cfg)
	logger.Log.WithFields(logrus.Fields{
		"airdc":         cfg.AirDCAddress(),
		"debug":         cfg.DebugMode,
		"timezone":      cfg.Timezone,
		"history":       cfg.HistoryDriver,
		"bot_commands":  cfg.BotCommandsEnabled,
		"poll_schedule": cfg.PollSchedule,
	}).Info("Configuration loaded")
	return cfg, nil
}

func newTelegramClient(cfg *config.AppConfig, poll bool) (*telegram.TelebotAdapter, error) {
	bot, err := telegram.NewBot(telegram.BotOptions{
		Token:   cfg.TelegramBotToken,
		APIURL:  cfg.TelegramAPIURL,
		Timeout: cfg.HTTPTimeout,
		Poll:    poll,
		Logger:  logger.Component("telegram"),
	})
	if err != nil {
		return nil, err
	}
	return telegram.NewTelebotAdapter(bot, logger.Component("telegram")), nil
}

func runMonitor(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mainLogger := logger.Component("main")
	mainLogger.Info("Starting AirDC++ upload monitor")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history, err := idb.NewHistoryRepository(ctx, cfg)
	if err != nil {
		mainLogger.WithError(err).Error("Could not open notification history")
		return err
	}
	defer history.Close()

	airdcClient, err := airdc.NewClient(cfg.AirDCScheme, cfg.AirDCAddress(), cfg.AirDCUser, cfg.AirDCPassword, cfg.HTTPTimeout, logger.Component("airdc"))
	if err != nil {
		mainLogger.WithError(err).Error("Could not create AirDC++ client")
		return err
	}

	telegramClient, err := newTelegramClient(cfg, cfg.BotCommandsEnabled)
	if err != nil {
		mainLogger.WithError(err).Error("Could not create Telegram bot")
		return err
	}

	var monitorMetrics *metrics.Metrics
	if cfg.MetricsAddr != "" {
		monitorMetrics = metrics.New()
		go func() {
			if err := monitorMetrics.Serve(ctx, cfg.MetricsAddr, logger.Component("metrics")); err != nil {
				mainLogger.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	monitor := app.NewUploadMonitor(airdcClient, history, telegramClient, app.MonitorOptions{
		ChatID:       cfg.TelegramChatID,
		Location:     cfg.Location,
		ErrorBackoff: cfg.ErrorBackoff,
		Detailed:     cfg.MessageDetailed,
		Metrics:      monitorMetrics,
		Logger:       logger.Component("monitor"),
	})

	monitorScheduler := scheduler.NewMonitorScheduler(monitor, logger.Component("scheduler"), scheduler.Options{
		PollSpec:    cfg.PollSchedule,
		CleanupSpec: cfg.CleanupSchedule,
		JobTimeout:  2 * cfg.HTTPTimeout,
		Location:    cfg.Location,
	})
	if err := monitorScheduler.Start(ctx); err != nil {
		mainLogger.WithError(err).Error("Could not start scheduler")
		return err
	}

	if cfg.BotCommandsEnabled {
		bot := telegramClient.Bot()
		telegram.RegisterBotCommands(bot, monitor, cfg.TelegramChatID, logger.Component("telegram"))
		go bot.Start()
		defer bot.Stop()
		mainLogger.Info("Bot commands enabled")
	}

	mainLogger.Info("Application setup complete. Monitoring uploads...")
	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	monitorScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
	return nil
}

func sendTestNotification(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	telegramClient, err := newTelegramClient(cfg, false)
	if err != nil {
		logger.Log.WithError(err).Error("Could not create Telegram bot")
		return err
	}

	monitor := app.NewUploadMonitor(nil, idb.NewMemoryHistoryRepository(), telegramClient, app.MonitorOptions{
		ChatID:   cfg.TelegramChatID,
		Location: cfg.Location,
		Logger:   logger.Component("monitor"),
	})
	if err := monitor.SendTestNotification(ctx); err != nil {
		logger.Log.WithError(err).Error("Test notification failed")
		return err
	}
	fmt.Println("Test notification sent.")
	return nil
}
