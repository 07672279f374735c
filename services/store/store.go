package store

import (
	"context"

	"sjsage522/retroconsolas/internal/market"
)

// SnapshotStore persists daily snapshots
type SnapshotStore interface {
	// Save records snap as the latest snapshot and replaces any history
	// entry of the same date
	Save(ctx context.Context, snap market.DailySnapshot) error

	// History returns every stored snapshot in ascending date order
	History(ctx context.Context) ([]market.DailySnapshot, error)

	// Close releases the store's resources
	Close() error
}
