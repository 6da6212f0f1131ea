package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/usecase"
	"github.com/magicbot/magicbot/internal/conf"
	"github.com/magicbot/magicbot/internal/data"
	"github.com/magicbot/magicbot/internal/infra/signalcli"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "magicbot",
	Short:   "Keyword moderation bot for signal-cli groups",
	Version: version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printHeader(title string) {
	color.New(color.FgCyan, color.Bold).Println(title)
	fmt.Println()
}

func printOK(format string, args ...any) {
	color.Green("✅ "+format, args...)
}

// exitf prints an error and exits non-zero so systemd and scripts notice
func exitf(format string, args ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, "❌ "+format+"\n", args...)
	os.Exit(1)
}

// app bundles what most commands need: configuration, stores and the gateway client
type app struct {
	cfg    *conf.Config
	repos  *data.Repositories
	global *domain.GlobalConfig
	client *signalcli.Client
	policy *usecase.PolicyUsecase
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := conf.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := conf.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	repos, err := data.NewStores(cfg)
	if err != nil {
		return nil, err
	}
	global, err := repos.Config.LoadGlobal(ctx)
	if err != nil {
		repos.Close()
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}

	client := signalcli.NewClient(cfg.SignalCLI, global.GatewayConfigDir, global.Account)
	client.SetTimeout(cfg.GatewayCallTimeout)
	client.SetRetries(cfg.GatewayRetries)
	repos.UseGateway(client)

	return &app{
		cfg:    cfg,
		repos:  repos,
		global: global,
		client: client,
		policy: usecase.NewPolicyUsecase(repos.Config, repos.Warn, repos.Gateway),
	}, nil
}

// mustApp is newApp for commands that cannot continue without it
func mustApp(ctx context.Context) *app {
	a, err := newApp(ctx)
	if err != nil {
		exitf("%v", err)
	}
	return a
}

func (a *app) Close() {
	if err := a.repos.Close(); err != nil {
		slog.Warn("failed to close stores", "error", err)
	}
}

// saveGlobal persists a modified copy of the global settings
func (a *app) saveGlobal(ctx context.Context, fn func(g *domain.GlobalConfig)) error {
	global, err := a.repos.Config.LoadGlobal(ctx)
	if err != nil {
		return err
	}
	fn(global)
	if err := a.repos.Config.SaveGlobal(ctx, global); err != nil {
		return err
	}
	a.global = global
	return nil
}
