package pack

import (
	"context"
	"errors"
	"time"

	"packflow/internal/catalog"
	"packflow/internal/logging"
	"packflow/internal/pipeline"
	"packflow/internal/services"
)

// initMerge decides whether this package must fold into a sibling
// uploaded under the same original file name. When siblings exist, the
// oldest one is awaited until it reaches a stable state and then locked;
// the wait is bounded by the configured merge timeout so a crashed
// sibling cannot strand this package forever.
func (w *Worker) initMerge(ctx context.Context, pkg *catalog.Package) error {
	current, err := w.store.GetByID(ctx, pkg.ID)
	if err != nil {
		return services.Wrap(services.CodeInitMergeGetPackages, "reload package record", err)
	}
	if current != nil && current.LockedByID != 0 {
		// A concurrent sibling already owns us; it will fold our media
		// in, so no merge work is needed here.
		if err := w.store.UpdateMergeRequired(ctx, pkg.ID, false); err != nil {
			return services.Wrap(services.CodeInitMergeUpdatePackage, "record merge not required", err)
		}
		pkg.MergeRequired = false
		return pipeline.ErrStop
	}

	candidates, err := w.store.SameName(ctx, pkg.OriginalFileName, pkg.ID)
	if err != nil {
		return services.Wrap(services.CodeInitMergeGetPackages, "query sibling packages", err)
	}
	if len(candidates) == 0 {
		if err := w.store.UpdateMergeRequired(ctx, pkg.ID, false); err != nil {
			return services.Wrap(services.CodeInitMergeUpdatePackage, "record merge not required", err)
		}
		pkg.MergeRequired = false
		return pipeline.ErrStop
	}

	if err := w.store.UpdateMergeRequired(ctx, pkg.ID, true); err != nil {
		return services.Wrap(services.CodeInitMergeUpdatePackage, "record merge required", err)
	}
	pkg.MergeRequired = true

	logger := logging.WithContext(ctx, w.logger)
	deadline := time.Now().Add(w.mergeTimeout)
	for {
		target, err := w.lockOldestStableSibling(ctx, pkg)
		if errors.Is(err, pipeline.ErrStop) {
			// Sibling set drained away while waiting.
			if updateErr := w.store.UpdateMergeRequired(ctx, pkg.ID, false); updateErr != nil {
				return services.Wrap(services.CodeInitMergeUpdatePackage, "record merge not required", updateErr)
			}
			pkg.MergeRequired = false
			return err
		}
		if err != nil {
			return err
		}
		if target != nil {
			logger.Info("locked merge target", logging.Int64("target_id", target.ID))
			return nil
		}

		if time.Now().After(deadline) {
			return services.Wrap(services.CodeInitMergeWaitForMedia,
				"timed out waiting for a sibling package to stabilize", nil)
		}
		select {
		case <-ctx.Done():
			return services.Wrap(services.CodeInitMergeWaitForMedia, "merge wait canceled", ctx.Err())
		case <-time.After(w.mergePoll):
		}
	}
}

// lockOldestStableSibling walks the current sibling set and tries to lock
// the oldest one that has reached a stable state and is not already owned
// by another merge. Returns nil without error when no sibling is lockable
// yet (caller polls) and ErrStop when the sibling set drained away.
func (w *Worker) lockOldestStableSibling(ctx context.Context, pkg *catalog.Package) (*catalog.Package, error) {
	candidates, err := w.store.SameName(ctx, pkg.OriginalFileName, pkg.ID)
	if err != nil {
		return nil, services.Wrap(services.CodeInitMergeGetPackages, "query sibling packages", err)
	}
	if len(candidates) == 0 {
		return nil, pipeline.ErrStop
	}

	for _, candidate := range candidates {
		if candidate.LockedByID != 0 && candidate.LockedByID != pkg.ID {
			// Owned by another in-flight merge; wait for that chain to
			// resolve before retrying.
			continue
		}
		if !candidate.State.IsStable() && candidate.LockedByID != pkg.ID {
			continue
		}
		locked, lockErr := w.store.Lock(ctx, candidate.ID, pkg.ID)
		if lockErr != nil {
			return nil, services.Wrap(services.CodeInitMergeLockPackage, "lock sibling package", lockErr)
		}
		if locked {
			return candidate, nil
		}
	}
	return nil, nil
}

// merge folds this package into its locked sibling: the sibling survives
// with the order-preserving union of both media id lists and whichever
// record's presentation artifacts win the richness comparison.
func (w *Worker) merge(ctx context.Context, pkg *catalog.Package) error {
	target, err := w.store.LockedBy(ctx, pkg.OriginalFileName, pkg.ID)
	if err != nil {
		return services.Wrap(services.CodeMergeGetPackage, "find locked merge target", err)
	}
	if target == nil {
		return services.Wrap(services.CodeMergeGetPackage, "merge target disappeared", nil)
	}

	union := unionMediaIDs(target.MediaIDs, pkg.MediaIDs)
	if err := w.store.UpdateMediaIDs(ctx, target.ID, union); err != nil {
		return services.Wrap(services.CodeMergeUpdateMedias, "record merged media ids", err)
	}

	chosen := SelectMultiSourcesMedia(target, pkg)
	if chosen == pkg {
		if err := w.store.UpdatePoints(ctx, target.ID, pkg.Tags, pkg.Timecodes); err != nil {
			return services.Wrap(services.CodeMergeUpdateMedias, "adopt richer presentation artifacts", err)
		}
		// The adopted tag ids reference rows owned by this package, so
		// they must move before the record cascade-deletes them.
		if err := w.store.ReassignPoints(ctx, pkg.ID, target.ID); err != nil {
			return services.Wrap(services.CodeMergeUpdateMedias, "reassign points of interest", err)
		}
		if pkg.Thumbnail != "" {
			if err := w.store.UpdateThumbnail(ctx, target.ID, pkg.Thumbnail); err != nil {
				return services.Wrap(services.CodeMergeUpdateMedias, "adopt thumbnail", err)
			}
		}
	}

	restored := catalog.StateReady
	if target.LastState.IsStable() {
		restored = target.LastState
	}
	if err := w.store.ReleaseLock(ctx, target.ID, restored); err != nil {
		return services.Wrap(services.CodeReleasePackage, "release merge target", err)
	}

	logging.WithContext(ctx, w.logger).Info("merged into sibling",
		logging.Int64("target_id", target.ID),
		logging.Int("media_sources", len(union)))
	return nil
}

// removePackage deletes this package's record after its media has been
// folded into the surviving sibling. Public artifacts stay on disk: the
// survivor may have adopted URLs pointing into them.
func (w *Worker) removePackage(ctx context.Context, pkg *catalog.Package) error {
	if err := w.store.Remove(ctx, pkg.ID); err != nil {
		return services.Wrap(services.CodeRemovePackage, "remove package record", err)
	}
	pkg.Removed = true
	return pipeline.ErrHalt
}

// SelectMultiSourcesMedia picks the record whose presentation artifacts
// survive a merge: more timecodes wins, then more tags; a full tie keeps
// the second argument.
func SelectMultiSourcesMedia(m1, m2 *catalog.Package) *catalog.Package {
	if len(m1.Timecodes) != len(m2.Timecodes) {
		if len(m1.Timecodes) > len(m2.Timecodes) {
			return m1
		}
		return m2
	}
	if len(m1.Tags) > len(m2.Tags) {
		return m1
	}
	return m2
}

// unionMediaIDs appends the ids of b that a does not already contain,
// preserving order.
func unionMediaIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	union := make([]string, 0, len(a)+len(b))
	for _, id := range append(append([]string{}, a...), b...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		union = append(union, id)
	}
	return union
}
