package core

import "context"

type (
	// Pinger reports whether the underlying store is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Store is an opened persistence backend.
	Store interface {
		Pinger
		Close(ctx context.Context) error
	}
)
