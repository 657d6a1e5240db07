package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Command(cmdline string)
	Error(operation, target string, err error)
	Debug(message string)
}

// SyncLogger writes to stderr through logrus so stdout stays free for
// printed paths, commands and ids
type SyncLogger struct {
	IsDryRun  bool
	IsQuiet   bool
	IsVerbose bool
	Out       io.Writer

	log *logrus.Logger
}

func (l *SyncLogger) logger() *logrus.Logger {
	if l.log != nil {
		return l.log
	}

	out := l.Out
	if out == nil {
		out = os.Stderr
	}

	l.log = logrus.New()
	l.log.SetOutput(out)
	l.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	switch {
	case l.IsQuiet:
		l.log.SetLevel(logrus.ErrorLevel)
	case l.IsVerbose:
		l.log.SetLevel(logrus.DebugLevel)
	default:
		l.log.SetLevel(logrus.InfoLevel)
	}
	return l.log
}

func (l *SyncLogger) Command(cmdline string) {
	entry := l.logger().WithField("cmd", cmdline)
	if l.IsDryRun {
		entry.Debug("(dryrun) would run")
		return
	}
	entry.Debug("running")
}

func (l *SyncLogger) Error(operation, target string, err error) {
	l.logger().WithFields(logrus.Fields{
		"op":     operation,
		"target": target,
	}).WithError(err).Error("failed")
}

func (l *SyncLogger) Debug(message string) {
	l.logger().Debug(message)
}

func (l *SyncLogger) Info(message string, fields map[string]interface{}) {
	l.logger().WithFields(logrus.Fields(fields)).Info(message)
}

type NullLogger struct{}

func (l *NullLogger) Command(cmdline string) {}

func (l *NullLogger) Error(operation, target string, err error) {}

func (l *NullLogger) Debug(message string) {}
