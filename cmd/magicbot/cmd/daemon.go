package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/magicbot/magicbot/internal/api"
	"github.com/magicbot/magicbot/internal/biz"
	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/server"
	"github.com/magicbot/magicbot/internal/service"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	Aliases: []string{"run"},
	Short:   "Run the moderation engine in the foreground",
	Run:     runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := mustApp(ctx)
	defer a.Close()

	if a.global.Account == "" {
		exitf("%v", domain.ErrNoAccount)
	}
	bin, err := a.client.LookPath()
	if err != nil {
		exitf("%v", err)
	}
	if err := a.repos.OpenAudit(a.cfg); err != nil {
		exitf("%v", err)
	}

	slog.Info("starting magicbot", "version", version, "account", a.global.Account, "signal_cli", bin, "store", a.cfg.Store, "warn_store", a.cfg.WarnBackend())

	ucs := biz.NewUsecases(a.repos.Config, a.repos.Warn, a.repos.Gateway, a.repos.Audit, a.global.Account, a.cfg.BotName)

	sweeper := service.NewSweeper(ucs.Warn, a.repos.Config, a.cfg.SweepSchedule)
	if err := sweeper.Start(); err != nil {
		exitf("%v", err)
	}
	defer sweeper.Stop()

	if a.cfg.MetricsAddr != "" {
		srv := api.NewServer(a.repos.Config, a.repos.Warn, a.repos.AuditLog, a.cfg.MetricsAddr)
		go func() {
			if err := srv.Start(); err != nil {
				slog.Error("http server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(shutdownCtx)
		}()
	}

	err = server.NewDispatcher(a.repos.Events, ucs).Run(ctx)
	switch {
	case err == nil:
		slog.Info("magicbot stopped")
	case errors.Is(err, domain.ErrNoWatchedGroups):
		exitf("%v", err)
	default:
		// Exit non-zero so the service manager restarts the daemon.
		slog.Error("dispatcher stopped", "error", err)
		sweeper.Stop()
		a.Close()
		os.Exit(1)
	}
}
