package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/magicbot/magicbot/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the policy tools over MCP on stdio",
	Run:   runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// stdout carries the protocol; logs go to stderr via the app logger
func runMCP(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := mustApp(ctx)
	defer a.Close()

	slog.Info("starting MCP server", "version", version)
	if err := mcpserver.NewServer(a.policy, version).Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("MCP server stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
}
