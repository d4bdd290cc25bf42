// Package logging provides the structured logger shared by the sync core.
// Component constructors accept a *zap.Logger and fall back to a no-op
// logger when none is supplied, so callers (and tests) never need to wire
// one up just to exercise an operation.
package logging

import "go.uber.org/zap"

// Or returns l if non-nil, otherwise a no-op logger.
func Or(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// NewDevelopment builds a console-friendly logger suitable for the
// interactive console and for local runs of the daemon. Production
// deployments are expected to construct and inject their own logger.
func NewDevelopment() *zap.Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
