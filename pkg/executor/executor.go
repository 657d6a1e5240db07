package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/yuya-takeyama/vmsync/pkg/logger"
)

const shell = "sh"

// SubprocessError reports a command that ran but exited non-zero
type SubprocessError struct {
	Command string
	Code    int
}

func (e *SubprocessError) Error() string {
	return fmt.Sprintf("sync cmd: %s failed with code %d", e.Command, e.Code)
}

// Executor hands synthesized command lines to sh. Failures are reported as
// they are and never retried.
type Executor struct {
	logger logger.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func NewExecutor(logger logger.Logger) *Executor {
	return &Executor{
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// WithIO returns a copy of e that uses the given streams instead of the
// process's own
func (e *Executor) WithIO(stdin io.Reader, stdout, stderr io.Writer) *Executor {
	c := *e
	c.stdin, c.stdout, c.stderr = stdin, stdout, stderr
	return &c
}

func (e *Executor) Run(ctx context.Context, cmdline string) error {
	e.logger.Command(cmdline)

	cmd := exec.CommandContext(ctx, shell, "-c", cmdline)
	cmd.Stdin = e.stdin
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		serr := &SubprocessError{Command: cmdline, Code: exitErr.ExitCode()}
		e.logger.Error("run", cmdline, serr)
		return serr
	}

	e.logger.Error("run", cmdline, err)
	return fmt.Errorf("failed to run %q: %w", cmdline, err)
}
