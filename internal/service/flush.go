package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"fishbot-economy-api/internal/cache"
	"fishbot-economy-api/internal/logging"
	"fishbot-economy-api/internal/repository"
)

// CreateFlushFunc creates a flush function that writes buffered snapshots to
// repo in write order. The first failure stops the flush so a dependent
// resource is never stored ahead of the one it relies on.
func CreateFlushFunc(repo repository.SnapshotRepository) cache.FlushFunc {
	log := logging.Component("flush")

	return func(ctx context.Context, items []cache.BufferedSnapshot) error {
		ordered := slices.Clone(items)
		slices.SortStableFunc(ordered, func(a, b cache.BufferedSnapshot) int {
			return cmp.Compare(repository.WriteRank(a.Resource), repository.WriteRank(b.Resource))
		})

		for i, it := range ordered {
			if err := repo.SaveSnapshot(ctx, it.Resource, it.Data); err != nil {
				log.WithError(err).WithFields(logrus.Fields{
					"resource": it.Resource,
					"skipped":  len(ordered) - i - 1,
				}).Error("write failed")
				return fmt.Errorf("flush %s: %w", it.Resource, err)
			}
		}

		log.WithField("written", len(ordered)).Debug("flush complete")
		return nil
	}
}
