package planner

import (
	"errors"
	"fmt"
	"strings"
)

type Transport string
type Direction string
type Feed string

const (
	TransportHost        Transport = "host"
	TransportObjectStore Transport = "s3"

	DirectionPush Direction = "push"
	DirectionPull Direction = "pull"

	FeedNone       Feed = "none"
	FeedGitTracked Feed = "git"
	FeedPipeFile   Feed = "pipe"
)

// ErrInvalidCombination is matched by InvalidCombinationError
var ErrInvalidCombination = errors.New("invalid flag combination")

// InvalidCombinationError names the flags that cannot be used together
type InvalidCombinationError struct {
	Flags  []string
	Reason string
}

func (e *InvalidCombinationError) Error() string {
	msg := fmt.Sprintf("%s cannot be used together", strings.Join(e.Flags, " and "))
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidCombinationError) Is(target error) bool {
	return target == ErrInvalidCombination
}

// Options is the raw, unvalidated input collected from the command line
type Options struct {
	S3         bool
	From       bool
	List       bool
	Git        bool
	Pipe       string
	Host       string
	HostSet    bool // Host was given explicitly rather than defaulted
	RemotePath string
	Args       []string
}

// Request is a validated sync request. It is never modified after NewRequest.
type Request struct {
	Transport  Transport
	Direction  Direction
	ListOnly   bool
	Feed       Feed
	PipeFile   string
	Host       string
	RemotePath string
	Args       []string
}
