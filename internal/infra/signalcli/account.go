package signalcli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Link starts linking this machine as a secondary device. onURI receives the
// sgnl:// link as soon as signal-cli prints it; Link returns once the primary
// device has scanned it or ctx is done.
func (c *Client) Link(ctx context.Context, deviceName string, onURI func(uri string)) error {
	args := c.args(false, "link", "-n", deviceName)
	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start signal-cli link: %w", err)
	}

	sawURI := false
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !sawURI && strings.HasPrefix(line, "sgnl://") {
			sawURI = true
			onURI(line)
		}
	}

	if err := cmd.Wait(); err != nil {
		return &CommandError{Args: args, ExitCode: cmd.ProcessState.ExitCode(), Stderr: stderr.String()}
	}
	if !sawURI {
		return &CommandError{Args: args, Stderr: "link returned no URI: " + stderr.String()}
	}
	return nil
}

// ListAccounts lists the accounts registered or linked on this machine
func (c *Client) ListAccounts(ctx context.Context) ([]string, error) {
	out, err := c.Run(ctx, c.args(false, "-o", "json", "listAccounts")...)
	if err != nil {
		return nil, err
	}
	var accounts []Account
	if err := decodeList(out, &accounts); err != nil {
		return nil, fmt.Errorf("parse listAccounts: %w", err)
	}
	numbers := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if a.Number != "" {
			numbers = append(numbers, a.Number)
		}
	}
	return numbers, nil
}

// Register requests a verification code for phone by SMS or voice call
func (c *Client) Register(ctx context.Context, phone string, voice bool, captcha string) error {
	args := c.args(false, "-a", phone, "register")
	if voice {
		args = append(args, "--voice")
	}
	if captcha != "" {
		args = append(args, "--captcha", captcha)
	}
	_, err := c.Run(ctx, args...)
	return err
}

// Verify completes a registration with the received code
func (c *Client) Verify(ctx context.Context, phone, code, pin string) error {
	args := c.args(false, "-a", phone, "verify", code)
	if pin != "" {
		args = append(args, "--pin", pin)
	}
	_, err := c.Run(ctx, args...)
	return err
}

// SubmitRateLimitChallenge lifts a rate limit with a solved captcha
func (c *Client) SubmitRateLimitChallenge(ctx context.Context, challenge, captcha string) error {
	args := c.args(true, "submitRateLimitChallenge")
	if challenge != "" {
		args = append(args, "--challenge", challenge)
	}
	args = append(args, "--captcha", captcha)
	_, err := c.Run(ctx, args...)
	return err
}

// DeleteLocalAccountData removes the account's local gateway data
func (c *Client) DeleteLocalAccountData(ctx context.Context) error {
	_, err := c.Run(ctx, c.args(true, "deleteLocalAccountData", "--ignore-registered")...)
	return err
}
