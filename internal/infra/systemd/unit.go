package systemd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const (
	// ServiceName is the systemd unit name without suffix
	ServiceName = "magicbot"
	// DefaultUnitPath is where the unit file is installed
	DefaultUnitPath = "/etc/systemd/system/magicbot.service"
)

// RenderUnit returns the unit file text for a daemon started from exe
func RenderUnit(exe string) string {
	var b strings.Builder
	b.WriteString("[Unit]\n")
	b.WriteString("Description=MagicBot (Signal) daemon\n")
	b.WriteString("After=network-online.target\n")
	b.WriteString("Wants=network-online.target\n\n")
	b.WriteString("[Service]\n")
	b.WriteString("Type=simple\n")
	fmt.Fprintf(&b, "ExecStart=%s daemon\n", exe)
	b.WriteString("Restart=always\n")
	b.WriteString("RestartSec=2\n")
	b.WriteString("User=root\n")
	b.WriteString("WorkingDirectory=/\n\n")
	b.WriteString("[Install]\n")
	b.WriteString("WantedBy=multi-user.target\n")
	return b.String()
}

// Manager installs and drives the daemon unit through systemctl
type Manager struct {
	UnitPath  string
	Systemctl string
}

// NewManager creates a manager for the default unit path
func NewManager() *Manager {
	return &Manager{UnitPath: DefaultUnitPath, Systemctl: "systemctl"}
}

// Install writes the unit file and reloads systemd
func (m *Manager) Install(ctx context.Context, exe string) error {
	if err := os.WriteFile(m.UnitPath, []byte(RenderUnit(exe)), 0644); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}
	return m.run(ctx, "daemon-reload")
}

// Uninstall stops the unit, removes its file and reloads systemd
func (m *Manager) Uninstall(ctx context.Context) error {
	// The unit may already be stopped or missing.
	_ = m.run(ctx, "disable", "--now", ServiceName)
	if err := os.Remove(m.UnitPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}
	return m.run(ctx, "daemon-reload")
}

// Enable enables the unit at boot and starts it
func (m *Manager) Enable(ctx context.Context) error {
	return m.run(ctx, "enable", "--now", ServiceName)
}

// Disable disables the unit and stops it
func (m *Manager) Disable(ctx context.Context) error {
	return m.run(ctx, "disable", "--now", ServiceName)
}

func (m *Manager) Start(ctx context.Context) error {
	return m.run(ctx, "start", ServiceName)
}

func (m *Manager) Stop(ctx context.Context) error {
	return m.run(ctx, "stop", ServiceName)
}

// Status returns the output of systemctl status. A stopped unit exits non-zero
// but still reports, so the output is returned alongside the error.
func (m *Manager) Status(ctx context.Context) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, m.Systemctl, "status", ServiceName, "-l", "--no-pager")
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

func (m *Manager) run(ctx context.Context, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.Systemctl, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("systemctl %s: %w", strings.Join(args, " "), err)
		}
		return fmt.Errorf("systemctl %s: %s", strings.Join(args, " "), msg)
	}
	return nil
}
