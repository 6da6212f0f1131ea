package signalcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultTimeout = 60 * time.Second
	defaultRetries = 2
)

// CommandError is a failed gateway invocation
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", e.ExitCode)
	}
	return fmt.Sprintf("signal-cli %s: %s", commandName(e.Args), msg)
}

// Client drives the signal-cli binary
type Client struct {
	binary    string
	configDir string
	account   string

	timeout time.Duration
	retries uint
}

// NewClient creates a client for binary. configDir and account may be empty.
func NewClient(binary, configDir, account string) *Client {
	if binary == "" {
		binary = "signal-cli"
	}
	return &Client{
		binary:    binary,
		configDir: configDir,
		account:   account,
		timeout:   defaultTimeout,
		retries:   defaultRetries,
	}
}

// SetTimeout sets the per-call timeout of one-shot commands; 0 disables it
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// SetRetries sets how often idempotent commands are retried after a failure
func (c *Client) SetRetries(n uint) {
	c.retries = n
}

// Account returns the account the client acts as
func (c *Client) Account() string {
	return c.account
}

// LookPath checks that the gateway binary is installed
func (c *Client) LookPath() (string, error) {
	path, err := exec.LookPath(c.binary)
	if err != nil {
		return "", fmt.Errorf("missing command %s: %w", c.binary, err)
	}
	return path, nil
}

// args prefixes the global flags. withAccount adds -u ACCOUNT.
func (c *Client) args(withAccount bool, rest ...string) []string {
	var args []string
	if c.configDir != "" {
		args = append(args, "--config", c.configDir)
	}
	if withAccount && c.account != "" {
		args = append(args, "-u", c.account)
	}
	return append(args, rest...)
}

// Run executes one command under the call timeout and returns its stdout
func (c *Client) Run(ctx context.Context, args ...string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	observeCall(commandName(args), start, err)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("signal-cli %s: %w", commandName(args), ctx.Err())
		}
		cmdErr := &CommandError{Args: args, ExitCode: -1, Stderr: stderr.String()}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		} else if cmdErr.Stderr == "" {
			cmdErr.Stderr = err.Error()
		}
		return nil, cmdErr
	}
	return stdout.Bytes(), nil
}

// runIdempotent retries Run with exponential backoff. Only use it for
// commands that are safe to repeat.
func (c *Client) runIdempotent(ctx context.Context, args ...string) ([]byte, error) {
	if c.retries == 0 {
		return c.Run(ctx, args...)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, func() ([]byte, error) {
		out, err := c.Run(ctx, args...)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return out, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.retries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("gateway call failed, retrying", "command", commandName(args), "retry_in", next, "error", err)
		}),
	)
}

// commandName returns the subcommand of an argument list, skipping global flags
func commandName(args []string) string {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config", "-u", "-a", "-o", "--output":
			i++
			continue
		}
		if !strings.HasPrefix(args[i], "-") {
			return args[i]
		}
	}
	return "signal-cli"
}
