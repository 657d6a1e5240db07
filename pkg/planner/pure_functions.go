package planner

import (
	"fmt"

	"github.com/kballard/go-shellquote"
)

const (
	localOperand = "./"
	gitFeed      = "git ls-files | "
)

var (
	objectStoreProgram = []string{"aws", "--profile", "mfa", "s3"}
	mirrorProgram      = []string{"rsync", "-azsc"}
)

// NewRequest validates opts and freezes them into a Request
func NewRequest(opts Options) (*Request, error) {
	if opts.Git && opts.Pipe != "" {
		return nil, &InvalidCombinationError{
			Flags:  []string{"--git", "--pipe"},
			Reason: "only one file list source can be used",
		}
	}

	if opts.S3 {
		switch {
		case opts.Git:
			return nil, &InvalidCombinationError{
				Flags:  []string{"--s3", "--git"},
				Reason: "file lists are not supported for s3",
			}
		case opts.Pipe != "":
			return nil, &InvalidCombinationError{
				Flags:  []string{"--s3", "--pipe"},
				Reason: "file lists are not supported for s3",
			}
		case opts.HostSet:
			return nil, &InvalidCombinationError{
				Flags:  []string{"--s3", "--host"},
				Reason: "s3 sync does not connect to a host",
			}
		}
	}

	if opts.List {
		switch {
		case opts.Git:
			return nil, &InvalidCombinationError{
				Flags:  []string{"--list", "--git"},
				Reason: "file lists only apply to transfers",
			}
		case opts.Pipe != "":
			return nil, &InvalidCombinationError{
				Flags:  []string{"--list", "--pipe"},
				Reason: "file lists only apply to transfers",
			}
		}
	}

	if !opts.S3 && opts.Host == "" {
		return nil, fmt.Errorf("host is required for host-based sync")
	}

	if opts.RemotePath == "" {
		return nil, fmt.Errorf("remote path cannot be empty")
	}

	req := &Request{
		Transport:  TransportHost,
		Direction:  DirectionPush,
		ListOnly:   opts.List,
		Feed:       FeedNone,
		RemotePath: opts.RemotePath,
		Args:       append([]string(nil), opts.Args...),
	}
	if opts.S3 {
		req.Transport = TransportObjectStore
	} else {
		req.Host = opts.Host
	}
	if opts.From {
		req.Direction = DirectionPull
	}
	switch {
	case opts.Git:
		req.Feed = FeedGitTracked
	case opts.Pipe != "":
		req.Feed = FeedPipeFile
		req.PipeFile = opts.Pipe
	}

	return req, nil
}

// Tokens returns the argument list for req, before shell joining
func Tokens(req *Request) []string {
	var tokens []string
	var remote string

	switch {
	case req.Transport == TransportObjectStore:
		tokens = append(tokens, objectStoreProgram...)
		if req.ListOnly {
			tokens = append(tokens, "ls")
		} else {
			tokens = append(tokens, "sync")
		}
		remote = req.RemotePath
	case req.ListOnly:
		// the host is an ssh argument here, not part of the remote operand
		tokens = append(tokens, "ssh", req.Host, "ls", "-l")
		remote = req.RemotePath
	default:
		tokens = append(tokens, mirrorProgram...)
		remote = req.Host + ":" + req.RemotePath
	}

	if req.Feed == FeedPipeFile {
		tokens = append(tokens, "--files-from="+req.PipeFile)
	}

	tokens = append(tokens, req.Args...)

	switch {
	case req.ListOnly:
		tokens = append(tokens, remote)
	case req.Direction == DirectionPull:
		tokens = append(tokens, remote, localOperand)
	default:
		tokens = append(tokens, localOperand, remote)
	}

	return tokens
}

// Synthesize renders req into a single shell command line
func Synthesize(req *Request) string {
	cmd := shellquote.Join(Tokens(req)...)
	if req.Feed == FeedGitTracked {
		return gitFeed + cmd
	}
	return cmd
}
