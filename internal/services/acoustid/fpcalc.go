package acoustid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Executor abstracts fpcalc execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).Output()
}

// Fingerprint is the Chromaprint output for one audio file.
type Fingerprint struct {
	Duration    int    `json:"duration"`
	Fingerprint string `json:"fingerprint"`
}

func (c *Client) fingerprint(ctx context.Context, path string) (Fingerprint, error) {
	var fp Fingerprint
	output, err := c.exec.Run(ctx, c.cfg.FpcalcBinary, []string{"-json", path})
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return fp, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return fp, err
	}
	if err := json.Unmarshal(output, &fp); err != nil {
		return fp, fmt.Errorf("parse fpcalc output: %w", err)
	}
	if fp.Fingerprint == "" {
		return fp, errors.New("fpcalc produced empty fingerprint")
	}
	return fp, nil
}
