package openairt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// Capture runs an ffmpeg subprocess that records the microphone and emits an
// Ogg/Opus stream on stdout, paged to match the outbound track sample rate.
type Capture struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
	mu     sync.Mutex
}

func NewCapture(ctx context.Context, format, input string) (*Capture, error) {
	args := []string{
		"-loglevel", "warning",
		"-f", format,
		"-i", input,
		"-vn",
		"-c:a", "libopus",
		"-b:a", "48k",
		"-ar", "48000",
		"-ac", "1",
		"-page_duration", "20000",
		"-f", "ogg",
		"-",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	slog.Info("Running ffmpeg capture", "cmd", "ffmpeg "+strings.Join(args, " "))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	return &Capture{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	go c.logStderr()

	return nil
}

func (c *Capture) AudioStream() io.ReadCloser {
	return c.stdout
}

// Stop kills the recorder, releasing the microphone.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}

func (c *Capture) logStderr() {
	scanner := bufio.NewScanner(c.stderr)
	for scanner.Scan() {
		slog.Debug("ffmpeg", "stderr", scanner.Text())
	}
}
