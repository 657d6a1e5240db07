// Package chooser lets a user pick one entry from a list through an external
// filtering program such as fzf.
package chooser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const separator = "\x00"

var (
	ErrNoSelection     = errors.New("nothing selected")
	ErrMalformedChoice = errors.New("malformed choice")
)

// MalformedChoiceError carries the filter output that could not be mapped
// back to an entry
type MalformedChoiceError struct {
	Output string
}

func (e *MalformedChoiceError) Error() string {
	return fmt.Sprintf("malformed choice from filter: %q", e.Output)
}

func (e *MalformedChoiceError) Is(target error) bool {
	return target == ErrMalformedChoice
}

// Chooser runs Program with Args as the filter. Each entry is written as
// "<index> <label>", so the filter must hide the first field from the user
// but keep it in its output.
type Chooser struct {
	Program string
	Args    []string
	Stderr  io.Writer
}

// New returns a chooser for fzf or a program that accepts the same flags.
// extraArgs are appended after the flags the protocol depends on.
func New(program string, extraArgs ...string) *Chooser {
	if program == "" {
		program = "fzf"
	}
	args := []string{"--print0", "--read0", "--with-nth=2.."}
	return &Chooser{
		Program: program,
		Args:    append(args, extraArgs...),
		Stderr:  os.Stderr,
	}
}

// Choose returns the index into labels of the entry the user picked. Input is
// written and output drained concurrently; the filter may block on a full
// stdout before it has read all of stdin.
func (c *Chooser) Choose(ctx context.Context, labels []string) (int, error) {
	if len(labels) == 0 {
		return 0, ErrNoSelection
	}

	cmd := exec.CommandContext(ctx, c.Program, c.Args...)
	cmd.Stderr = c.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return 0, fmt.Errorf("open filter stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("open filter stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", c.Program, err)
	}

	var output []byte
	var g errgroup.Group

	g.Go(func() error {
		defer stdin.Close()
		return writeLabels(stdin, labels)
	})

	g.Go(func() error {
		var err error
		output, err = io.ReadAll(stdout)
		return err
	})

	ioErr := g.Wait()
	waitErr := cmd.Wait()

	if ioErr != nil && !errors.Is(ioErr, syscall.EPIPE) && !errors.Is(ioErr, os.ErrClosed) {
		return 0, fmt.Errorf("talk to %s: %w", c.Program, ioErr)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return 0, fmt.Errorf("wait for %s: %w", c.Program, waitErr)
	}

	return parseChoice(string(output), len(labels))
}

func writeLabels(w io.Writer, labels []string) error {
	bw := bufio.NewWriter(w)
	for i, label := range labels {
		if i > 0 {
			if _, err := bw.WriteString(separator); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(bw, "%d %s", i, label); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// parseChoice maps the first selected entry back to its index. A filter that
// was aborted exits without output, which is reported as ErrNoSelection.
func parseChoice(output string, count int) (int, error) {
	first, _, _ := strings.Cut(output, separator)
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return 0, ErrNoSelection
	}

	idx, err := strconv.Atoi(fields[0])
	if err != nil || idx < 0 || idx >= count {
		return 0, &MalformedChoiceError{Output: first}
	}

	return idx, nil
}
