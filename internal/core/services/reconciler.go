package services

import (
	"context"
	"fmt"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driven"
	"github.com/bcsurf2822/ragpipe/internal/logger"
)

// Reconciler removes orphaned chunks: stored file IDs that no longer
// exist at the source. It refuses to act on an incomplete listing, since
// deleting against a partial view would destroy chunks for files that
// still exist.
type Reconciler struct {
	docStore driven.DocumentStore
}

// NewReconciler creates a reconciler over the given document store.
func NewReconciler(docStore driven.DocumentStore) *Reconciler {
	return &Reconciler{docStore: docStore}
}

// Reconcile deletes chunks for every stored file ID absent from the
// listing. Returns the number of orphans removed. A listing that is not
// complete yields domain.ErrIncompleteListing and no deletions.
func (r *Reconciler) Reconcile(ctx context.Context, listing domain.Listing) (int, error) {
	if !listing.Complete {
		return 0, domain.ErrIncompleteListing
	}

	stored, err := r.docStore.ListFileIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stored file IDs: %w", err)
	}

	live := listing.IDs()
	deleted := 0
	var firstErr error
	for id := range stored {
		if _, ok := live[id]; ok {
			continue
		}
		if err := r.docStore.DeleteByFileID(ctx, id); err != nil {
			logger.Error("[reconciler] failed to delete orphan %s: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Info("[reconciler] removed orphaned chunks for %s", id)
		deleted++
	}

	return deleted, firstErr
}
