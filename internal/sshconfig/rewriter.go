package sshconfig

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

var (
	hostLine     = regexp.MustCompile(`^\s*(?i:host)\s+(\S+)`)
	hostnameLine = regexp.MustCompile(`^(\s*(?i:hostname)\s+)(\S+)`)
)

// ConfigReadError wraps a failure to read the config being rewritten
type ConfigReadError struct {
	Path string
	Err  error
}

func (e *ConfigReadError) Error() string {
	return fmt.Sprintf("read ssh config %s: %v", e.Path, e.Err)
}

func (e *ConfigReadError) Unwrap() error { return e.Err }

// ConfigWriteError wraps a failure to write or install the rewritten config.
// The original file is untouched when this is returned.
type ConfigWriteError struct {
	Path string
	Err  error
}

func (e *ConfigWriteError) Error() string {
	return fmt.Sprintf("write ssh config %s: %v", e.Path, e.Err)
}

func (e *ConfigWriteError) Unwrap() error { return e.Err }

type blockState int

const (
	outsideBlock blockState = iota
	insideBlock
)

// nextState is the only place the block state changes. Header lines decide
// the new state; every other line keeps the current one.
func nextState(state blockState, line, hostPrefix string) (blockState, bool) {
	m := hostLine.FindStringSubmatch(line)
	if m == nil {
		return state, false
	}
	if strings.HasPrefix(m[1], hostPrefix) {
		return insideBlock, true
	}
	return outsideBlock, true
}

// RewriteLines copies r to w, replacing the Hostname value inside every Host
// block whose name starts with hostPrefix. Line endings are kept as they are.
func RewriteLines(r io.Reader, w io.Writer, hostPrefix, hostname string) error {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	replacement := "${1}" + strings.ReplaceAll(hostname, "$", "$$")
	state := outsideBlock

	for {
		raw, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return &ConfigReadError{Err: readErr}
		}
		if raw == "" {
			break
		}

		content, ending := splitEnding(raw)

		var header bool
		state, header = nextState(state, content, hostPrefix)
		if !header && state == insideBlock {
			content = hostnameLine.ReplaceAllString(content, replacement)
		}

		if _, err := bw.WriteString(content + ending); err != nil {
			return err
		}

		if readErr == io.EOF {
			break
		}
	}

	return bw.Flush()
}

func splitEnding(line string) (string, string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	default:
		return line, ""
	}
}

// Rewrite updates the config at path in place. The result is written to a
// temporary file next to path and renamed over it only once fully written.
func Rewrite(fs afero.Fs, path, hostPrefix, hostname string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return &ConfigReadError{Path: path, Err: err}
	}

	src, err := fs.Open(path)
	if err != nil {
		return &ConfigReadError{Path: path, Err: err}
	}
	defer src.Close()

	tmp, err := afero.TempFile(fs, filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return &ConfigWriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	installed := false
	defer func() {
		if !installed {
			tmp.Close()
			fs.Remove(tmpName)
		}
	}()

	if err := RewriteLines(src, tmp, hostPrefix, hostname); err != nil {
		var readErr *ConfigReadError
		if errors.As(err, &readErr) {
			readErr.Path = path
			return readErr
		}
		return &ConfigWriteError{Path: path, Err: err}
	}

	if err := tmp.Sync(); err != nil {
		return &ConfigWriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &ConfigWriteError{Path: path, Err: err}
	}
	if err := fs.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return &ConfigWriteError{Path: path, Err: err}
	}
	if err := fs.Rename(tmpName, path); err != nil {
		return &ConfigWriteError{Path: path, Err: err}
	}

	installed = true
	return nil
}
