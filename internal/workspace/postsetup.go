package workspace

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrPostSetupTimeout marks a post-setup command that exceeded its bound.
// Non-fatal: the workspace remains usable.
var ErrPostSetupTimeout = errors.New("post-setup command timed out")

// DefaultPostSetupTimeout bounds the post-setup shell command.
const DefaultPostSetupTimeout = 5 * time.Minute

// runPostSetup runs the project's post-setup shell command in the
// workspace root with a wall-clock limit, after which the subprocess is
// killed.
func runPostSetup(ctx context.Context, dir, command string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultPostSetupTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %s", ErrPostSetupTimeout, timeout, command)
	}
	if err != nil {
		return fmt.Errorf("post-setup command %q: %w: %s", command, err, strings.TrimSpace(string(out)))
	}
	return nil
}
