// Package transport defines the abstract boundary between the sync engine
// and whatever carries snapshots and commands: an in-memory double for
// tests, the NATS realtime bridge, or a polled cloud database. The engine
// only ever sees these four operations.
package transport

import (
	"context"

	"codexmonitor/pkg/models"
)

// Transport is the put/get surface of the shared, eventually-consistent
// store. Implementations return (nil, nil) for "no data" so callers can
// treat absence and malformed data uniformly.
type Transport interface {
	// FetchSnapshot returns the raw envelope bytes for a scope, nil when
	// the writer has not published one.
	FetchSnapshot(ctx context.Context, writerID, scopeKey string) ([]byte, error)

	// SubmitCommand dispatches a serialized command envelope. Delivery is
	// fire-and-forget; confirmation arrives via FetchCommandResult or a
	// later snapshot.
	SubmitCommand(ctx context.Context, writerID string, payload []byte) error

	// FetchCommandResult returns the runner's result for a command id,
	// nil while no result has been published.
	FetchCommandResult(ctx context.Context, writerID, commandID string) (*models.CommandResult, error)

	// DiscoverWriter returns the most recently seen runner, nil when none
	// is advertising presence.
	DiscoverWriter(ctx context.Context) (*models.WriterInfo, error)
}
