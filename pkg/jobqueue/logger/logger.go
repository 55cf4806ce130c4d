// Package logger defines the leveled, structured logging interface used
// throughout the engine, so that core packages depend on an interface
// rather than a concrete logging library.
package logger

import logging "github.com/ipfs/go-log/v2"

// StandardLogger is the subset of github.com/ipfs/go-log/v2's API the
// engine needs. It is satisfied directly by *logging.ZapEventLogger.
type StandardLogger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

var _ StandardLogger = (*logging.ZapEventLogger)(nil)

// New returns the named go-log logger, the same way every package in the
// engine should obtain its logger: one scoped instance per package.
func New(name string) StandardLogger {
	return logging.Logger(name)
}

// DiscardLogger is a no-op StandardLogger, used as the zero-value default
// so core engine types never require a configured logger to function.
type DiscardLogger struct{}

var _ StandardLogger = (*DiscardLogger)(nil)

func (DiscardLogger) Debug(args ...interface{})                       {}
func (DiscardLogger) Debugf(format string, args ...interface{})       {}
func (DiscardLogger) Debugw(msg string, keysAndValues ...interface{}) {}
func (DiscardLogger) Info(args ...interface{})                        {}
func (DiscardLogger) Infof(format string, args ...interface{})        {}
func (DiscardLogger) Infow(msg string, keysAndValues ...interface{})  {}
func (DiscardLogger) Warn(args ...interface{})                        {}
func (DiscardLogger) Warnf(format string, args ...interface{})        {}
func (DiscardLogger) Warnw(msg string, keysAndValues ...interface{})  {}
func (DiscardLogger) Error(args ...interface{})                       {}
func (DiscardLogger) Errorf(format string, args ...interface{})       {}
func (DiscardLogger) Errorw(msg string, keysAndValues ...interface{}) {}
