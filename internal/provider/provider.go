// Package provider defines the abstract remote sync endpoint and its two
// concrete variants: a filesystem path synchronized externally (Folder),
// and a bearer-token HTTP API (Hosted).
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hazyhaar/ggsync/internal/model"
)

// ErrNotFound is returned by Pull and RemoteMeta when no snapshot has ever
// been pushed. It is not treated as a failure by the sync engine — the
// engine maps it to a Skipped(NoRemoteConfig) result.
var ErrNotFound = errors.New("provider: not found")

// Kind tags the provider error taxonomy so callers can distinguish a
// transport failure from a protocol-level rejection without string
// matching on error text.
type Kind int

const (
	KindIO Kind = iota
	KindNetwork
	KindNotFound
	KindOther
)

// Error is the error taxonomy every provider variant returns: Io, Network,
// NotFound, or Other(message).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Kind == KindNotFound
}

// ioErr builds a KindIO error from a "context: %w" format. The context
// becomes Message and err becomes Cause, so Error renders "context: cause".
func ioErr(format string, err error) error {
	return &Error{Kind: KindIO, Message: strings.TrimSuffix(format, ": %w"), Cause: err}
}

func networkErr(err error) error {
	return &Error{Kind: KindNetwork, Message: "network error", Cause: err}
}

func notFoundErr() error {
	return &Error{Kind: KindNotFound, Message: "no snapshot has been pushed"}
}

func otherErr(format string, args ...any) error {
	return &Error{Kind: KindOther, Message: fmt.Sprintf(format, args...)}
}

// Provider is the abstract remote endpoint every variant implements.
type Provider interface {
	// Push atomically (from the provider's perspective) replaces the
	// remote triple and records metadata for snapshot.
	Push(ctx context.Context, snapshot model.ConfigSnapshot) error

	// Pull retrieves the full triple and metadata. Returns ErrNotFound
	// (wrapped) if no snapshot has ever been pushed.
	Pull(ctx context.Context) (model.ConfigSnapshot, error)

	// RemoteMeta is a cheap metadata-only probe. Returns ErrNotFound
	// (wrapped) if no snapshot has ever been pushed.
	RemoteMeta(ctx context.Context) (model.SyncMeta, error)
}
