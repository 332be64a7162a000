package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// PointsStore persists the PointsState aggregate keyed by user.
type PointsStore interface {
	// LoadPoints returns the saved state, or nil with no error when the user
	// has none yet.
	LoadPoints(ctx context.Context, userKey string) (*PointsState, error)

	// SavePoints upserts the five aggregate fields. Transient engine flags
	// are never part of state.
	SavePoints(ctx context.Context, userKey string, state PointsState) error
}

// PointsJournal is the append-only log of point awards.
type PointsJournal interface {
	AppendPointEvent(ctx context.Context, ev PointEvent) error

	// ListPointEvents returns the newest events first.
	ListPointEvents(ctx context.Context, userKey string, limit int) ([]PointEvent, error)
}

// Store is a complete persistence backend.
type Store interface {
	PointsStore
	PointsJournal
	Ping(ctx context.Context) error
	Close() error
}

// Notifier receives level-up and achievement notifications.
// Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}
