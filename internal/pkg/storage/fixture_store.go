package storage

import (
	"context"

	"github.com/oskarlindgren/valuebets/internal/pkg/models"
)

// FixtureStore is the persistent set of previously-seen bet records, keyed
// by identity. The pipeline only ever looks identities up and appends new
// rows; it never updates or deletes.
type FixtureStore interface {
	// LookupIdentities returns the subset of the given identities that are
	// already present in the store. The identity list must not be empty;
	// callers with nothing to look up short-circuit before calling.
	LookupIdentities(ctx context.Context, identities []string) (map[string]struct{}, error)

	// InsertRecords appends the given records. Records whose identity is
	// already present are ignored.
	InsertRecords(ctx context.Context, records []models.BetRecord) error

	// Close closes the underlying connection.
	Close() error
}
