package store

import (
	"context"

	"github.com/AFS-Neto/Steam-Extrator/pkg/record"
)

// RawStore is the append-only landing zone for fetch snapshots. Every
// successful fetch cycle appends rows; nothing here deduplicates or enforces
// keys. Rows read back carry the storage sequence used for tie-breaking.
type RawStore interface {
	AppendProfile(ctx context.Context, row record.ProfileRow) error
	AppendOwnedGames(ctx context.Context, rows []record.OwnedGameRow) error
	AppendMetadata(ctx context.Context, rows []record.GameMetadataRow) error

	Profiles(ctx context.Context) ([]record.ProfileRow, error)
	OwnedGames(ctx context.Context) ([]record.OwnedGameRow, error)
	Metadata(ctx context.Context) ([]record.GameMetadataRow, error)

	Close(ctx context.Context) error
}

// UpsertStats reports the outcome of one trusted batch upsert.
type UpsertStats struct {
	Upserted int
	Skipped  int
}

// TrustedStore holds exactly one current row per natural key. Upserts insert
// the full row when the key is absent; when the key exists only dh_updated
// advances and every other attribute column is left untouched. Each batch
// runs in a single transaction per entity kind with per-row error isolation:
// a malformed row is counted as skipped, the batch continues.
type TrustedStore interface {
	UpsertProfiles(ctx context.Context, rows []record.ProfileRow) (UpsertStats, error)
	UpsertOwnedGames(ctx context.Context, rows []record.OwnedGameRow) (UpsertStats, error)
	UpsertMetadata(ctx context.Context, rows []record.GameMetadataRow) (UpsertStats, error)

	Profiles(ctx context.Context) ([]record.ProfileRow, error)
	OwnedGames(ctx context.Context) ([]record.OwnedGameRow, error)
	Metadata(ctx context.Context) ([]record.GameMetadataRow, error)

	Close(ctx context.Context) error
}
