package install

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

// Runner runs a command line.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands on the host with os/exec.
type ExecRunner struct {
	Logger *log.Logger
}

// Run executes name with args and returns an error carrying the combined
// output when the command fails.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	logger := orDiscard(r.Logger)
	logger.Debug("exec", "cmd", name, "args", strings.Join(args, " "))

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return nil
}

// DryRunRunner logs commands without running them.
type DryRunRunner struct {
	Logger *log.Logger
}

// Run logs the command line at info level.
func (r DryRunRunner) Run(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	orDiscard(r.Logger).Info("dry run", "cmd", strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return nil
}

func orDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return log.New(io.Discard)
	}
	return l
}
