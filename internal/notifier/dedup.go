package notifier

import (
	"context"
	"fmt"

	"github.com/oskarlindgren/valuebets/internal/pkg/models"
	"github.com/oskarlindgren/valuebets/internal/pkg/storage"
)

// Dedup returns the records from fresh whose identity is not yet in the
// store. Pure set difference: the input order of surviving records is
// preserved and nothing is written. An empty fresh batch short-circuits
// without touching the store.
func Dedup(ctx context.Context, fresh []models.BetRecord, store storage.FixtureStore) ([]models.BetRecord, error) {
	if len(fresh) == 0 {
		return []models.BetRecord{}, nil
	}

	identities := make([]string, 0, len(fresh))
	for i := range fresh {
		identities = append(identities, fresh[i].Identity)
	}

	seen, err := store.LookupIdentities(ctx, identities)
	if err != nil {
		return nil, fmt.Errorf("failed to look up identities: %w", err)
	}

	unseen := make([]models.BetRecord, 0, len(fresh))
	for i := range fresh {
		if _, ok := seen[fresh[i].Identity]; ok {
			continue
		}
		unseen = append(unseen, fresh[i])
	}

	return unseen, nil
}
