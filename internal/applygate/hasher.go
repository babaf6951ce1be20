package applygate

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Executor runs an external binary and returns its stdout.
type Executor interface {
	Run(ctx context.Context, binary string, args ...string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).Output()
}

// StreamHasher produces a content hash of the decoded audio stream, so two
// files with identical audio but different container metadata hash the same.
type StreamHasher interface {
	Hash(ctx context.Context, path string) (string, error)
}

// FFmpegHasher decodes the audio stream through ffmpeg's md5 muxer.
type FFmpegHasher struct {
	binary   string
	executor Executor
}

// NewFFmpegHasher builds a hasher around the given ffmpeg binary. An empty
// binary defaults to "ffmpeg" on PATH.
func NewFFmpegHasher(binary string, executor Executor) *FFmpegHasher {
	if binary == "" {
		binary = "ffmpeg"
	}
	if executor == nil {
		executor = commandExecutor{}
	}
	return &FFmpegHasher{binary: binary, executor: executor}
}

// Hash returns the md5 of the decoded audio stream as a hex string.
func (h *FFmpegHasher) Hash(ctx context.Context, path string) (string, error) {
	out, err := h.executor.Run(ctx, h.binary,
		"-nostdin", "-v", "error", "-i", path, "-map", "0:a", "-f", "md5", "-")
	if err != nil {
		return "", fmt.Errorf("decode stream hash: run %s: %w", h.binary, err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if digest, ok := strings.CutPrefix(line, "MD5="); ok && digest != "" {
			return strings.ToLower(digest), nil
		}
	}
	return "", fmt.Errorf("decode stream hash: no MD5 line in %s output", h.binary)
}
