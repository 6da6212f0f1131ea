package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/infra/systemd"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the systemd unit of the daemon",
}

func init() {
	serviceCmd.AddCommand(
		&cobra.Command{Use: "install", Short: "Write the unit file and reload systemd", Run: runServiceInstall},
		&cobra.Command{Use: "uninstall", Short: "Stop the daemon and remove the unit file", Run: runServiceUninstall},
		&cobra.Command{Use: "enable", Short: "Start the daemon now and at boot", Run: runServiceEnable},
		&cobra.Command{Use: "disable", Short: "Stop the daemon and disable it at boot", Run: runServiceDisable},
		&cobra.Command{Use: "start", Short: "Start the daemon", Run: runServiceSimple("start")},
		&cobra.Command{Use: "stop", Short: "Stop the daemon", Run: runServiceSimple("stop")},
		&cobra.Command{Use: "status", Short: "Show the daemon status", Run: runServiceStatus},
	)
	rootCmd.AddCommand(serviceCmd)
}

func requireRoot() {
	if os.Geteuid() != 0 {
		exitf("This command must run as root")
	}
}

func runServiceInstall(cmd *cobra.Command, args []string) {
	printHeader("📦 MagicBot Service Install")
	requireRoot()

	exe, err := os.Executable()
	if err != nil {
		exitf("Failed to resolve executable: %v", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	m := systemd.NewManager()
	if err := m.Install(context.Background(), exe); err != nil {
		exitf("Install failed: %v", err)
	}
	printOK("Installed %s", m.UnitPath)
	fmt.Println("Run `magicbot service enable` to start it.")
}

func runServiceUninstall(cmd *cobra.Command, args []string) {
	requireRoot()
	ctx := context.Background()
	m := systemd.NewManager()
	if err := m.Uninstall(ctx); err != nil {
		exitf("Uninstall failed: %v", err)
	}
	setDaemonEnabled(ctx, false)
	printOK("Removed %s", m.UnitPath)
}

func runServiceEnable(cmd *cobra.Command, args []string) {
	requireRoot()
	ctx := context.Background()
	if err := systemd.NewManager().Enable(ctx); err != nil {
		exitf("%v", err)
	}
	setDaemonEnabled(ctx, true)
	printOK("Daemon enabled")
}

func runServiceDisable(cmd *cobra.Command, args []string) {
	requireRoot()
	ctx := context.Background()
	if err := systemd.NewManager().Disable(ctx); err != nil {
		exitf("%v", err)
	}
	setDaemonEnabled(ctx, false)
	printOK("Daemon disabled")
}

func runServiceSimple(action string) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		requireRoot()
		m := systemd.NewManager()
		run := m.Start
		if action == "stop" {
			run = m.Stop
		}
		if err := run(context.Background()); err != nil {
			exitf("%v", err)
		}
		printOK("Daemon %s ok", action)
	}
}

func runServiceStatus(cmd *cobra.Command, args []string) {
	out, err := systemd.NewManager().Status(context.Background())
	fmt.Print(out)
	if err != nil && out == "" {
		exitf("%v", err)
	}
}

func setDaemonEnabled(ctx context.Context, enabled bool) {
	a := mustApp(ctx)
	defer a.Close()
	if err := a.saveGlobal(ctx, func(g *domain.GlobalConfig) { g.DaemonEnabled = enabled }); err != nil {
		fmt.Printf("Failed to record daemon state: %v\n", err)
	}
}
