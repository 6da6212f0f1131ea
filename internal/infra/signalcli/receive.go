package signalcli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
)

// Stream is a running `receive` subprocess. Lines are delivered in order on
// an unbuffered channel, so a slow consumer blocks the reader.
type Stream struct {
	cmd    *exec.Cmd
	stdout *bufio.Reader
	stderr io.ReadCloser

	lines   chan []byte
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	stopped atomic.Bool
	wg      sync.WaitGroup
	readErr error
}

// Receive starts `-o json receive -t -1 --ignore-attachments`.
// Cancelling ctx kills the subprocess.
func (c *Client) Receive(parent context.Context) (*Stream, error) {
	ctx, cancel := context.WithCancel(parent)
	args := c.args(true, "-o", "json", "receive", "-t", "-1", "--ignore-attachments")

	s := &Stream{
		cmd:    exec.CommandContext(ctx, c.binary, args...),
		lines:  make(chan []byte),
		parent: parent,
		ctx:    ctx,
		cancel: cancel,
	}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	s.stdout = bufio.NewReaderSize(stdout, 64*1024)

	s.stderr, err = s.cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := s.cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start signal-cli receive: %w", err)
	}
	slog.Info("receive stream started", "pid", s.cmd.Process.Pid)

	s.wg.Add(2)
	go s.readLoop()
	go s.readStderr()
	return s, nil
}

// Lines yields raw event lines; it is closed when stdout ends
func (s *Stream) Lines() <-chan []byte {
	return s.lines
}

// Stop kills the subprocess
func (s *Stream) Stop() {
	s.stopped.Store(true)
	s.cancel()
}

// Wait waits for the subprocess to exit. It returns nil after Stop or
// cancellation, and otherwise the reason the stream ended.
func (s *Stream) Wait() error {
	s.wg.Wait()
	err := s.cmd.Wait()
	cancelled := s.stopped.Load() || s.parent.Err() != nil
	s.cancel()

	if cancelled {
		return nil
	}
	if s.readErr != nil {
		return fmt.Errorf("read receive stream: %w", s.readErr)
	}
	if err != nil {
		return fmt.Errorf("signal-cli receive exited: %w", err)
	}
	return io.EOF
}

func (s *Stream) readLoop() {
	defer s.wg.Done()
	defer close(s.lines)

	// no line length limit
	for {
		line, err := s.stdout.ReadBytes('\n')
		if line = bytes.TrimRight(line, "\r\n"); len(line) > 0 {
			select {
			case s.lines <- line:
			case <-s.ctx.Done():
				return
			}
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) && s.ctx.Err() == nil {
			s.readErr = err
			// Kill the subprocess so Wait can return.
			s.cancel()
		}
		return
	}
}

func (s *Stream) readStderr() {
	defer s.wg.Done()

	scanner := bufio.NewScanner(s.stderr)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			slog.Debug("signal-cli stderr", "line", line)
		}
	}
}
