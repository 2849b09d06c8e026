package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"zabbix_input/internal/api"
	"zabbix_input/internal/apivalidator"
	"zabbix_input/internal/collector"
	"zabbix_input/internal/config"
	"zabbix_input/internal/fields"
	"zabbix_input/internal/logger"
	"zabbix_input/internal/scheduler"
	"zabbix_input/internal/server"
	"zabbix_input/internal/session"
	"zabbix_input/internal/stats"
	"zabbix_input/internal/zabbix"
	"zabbix_input/pkg/profiler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

// loadPages правила страниц из файла или встроенные
func loadPages(path string) (map[string]*fields.Table, error) {
	if path == "" {
		return fields.DefaultPages()
	}
	return fields.LoadTables(path)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	if err := cfg.Load(cmd); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Cleanup()
	log := logger.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pages, err := loadPages(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("failed to load page rules: %w", err)
	}

	ipv6 := cfg.AllowIPv6(ctx)
	log.Info("Starting zbxinput",
		zap.String("listen", cfg.ListenAddr),
		zap.Int("pages", len(pages)),
		zap.Bool("ipv6", ipv6),
		zap.String("language", cfg.Language))

	prof := profiler.New(profiler.Config{
		Enable:      cfg.ProfileEnable,
		CPUProfile:  cfg.ProfileCPUFile,
		MemProfile:  cfg.ProfileMemFile,
		ProfileTime: cfg.ProfileTime,
	}, log)
	if err := prof.Start(); err != nil {
		return err
	}
	defer func() {
		prof.LogMemStats()
		if err := prof.Stop(); err != nil {
			log.Error("Failed to stop profiler", zap.Error(err))
		}
	}()

	sessions := session.NewStore(cfg.SessionTTL, log)
	counters := &stats.Counters{}
	validator := apivalidator.New(log, apivalidator.WithIPv6(ipv6))
	svc := api.NewService(sessions, log)

	srv := server.New(server.Options{
		Addr:      cfg.ListenAddr,
		Language:  cfg.Language,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	}, server.Deps{
		Checker:    fields.NewChecker(log, fields.WithIPv6(ipv6), fields.WithLanguage(cfg.Language)),
		Pages:      pages,
		Sessions:   sessions,
		Service:    svc,
		Dispatcher: api.NewDispatcher(svc, sessions, validator, counters, log),
		Counters:   counters,
		Debug:      prof.Handler(),
	}, log)

	var (
		reporter scheduler.Reporter
		client   *zabbix.Client
	)
	if cfg.MonitorEnable {
		client = zabbix.NewClient(cfg.ZabbixURL, cfg.ZabbixUser, cfg.ZabbixPassword, cfg.HTTPTimeout, log,
			zabbix.WithSenderPort(cfg.SenderPort),
			zabbix.WithSchemas(api.Schemas(), validator))
		reporter = client
	}
	sched := scheduler.New(cfg, collector.New(counters, sessions, log), reporter, sessions, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })

	err = g.Wait()

	if client != nil {
		logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if lerr := client.Logout(logoutCtx); lerr != nil {
			log.Debug("Zabbix logout failed", zap.Error(lerr))
		}
		cancel()
	}

	log.Info("zbxinput stopped", zap.Any("stats", counters.Snapshot()))
	return err
}
