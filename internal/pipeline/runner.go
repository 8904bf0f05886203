package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"packflow/internal/catalog"
	"packflow/internal/logging"
	"packflow/internal/services"
)

// Sentinel results a handler can return to end the pipeline early.
var (
	// ErrStop finalizes the package as ready without running the
	// remaining transitions. Returned when a merge turns out not to be
	// required.
	ErrStop = errors.New("pipeline: stop and finalize")
	// ErrHalt ends the run without touching the record again. Returned
	// after a merge loser has deleted its own record.
	ErrHalt = errors.New("pipeline: halt without persisting")
)

// Runner drives one package through a pipeline definition, persisting the
// resume point before every side-effecting call.
type Runner struct {
	store    *catalog.Store
	logger   *slog.Logger
	def      Definition
	handlers map[catalog.Transition]Handler
}

// NewRunner binds a definition and its handler table to the store.
func NewRunner(store *catalog.Store, logger *slog.Logger, def Definition, handlers map[catalog.Transition]Handler) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{store: store, logger: logger, def: def, handlers: handlers}
}

// Run advances the package from its persisted resume point through the
// remaining suffix of the transition stack. Transitions execute strictly
// in order; a failure stops the run and records the error classification.
func (r *Runner) Run(ctx context.Context, pkg *catalog.Package) error {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	ctx = services.WithPackageID(ctx, pkg.ID)

	start := r.def.StartIndex(pkg.LastTransition)
	for i := start; i < len(r.def.Stack); i++ {
		transition := r.def.Stack[i]
		stepCtx := services.WithTransition(ctx, string(transition))
		logger := logging.WithContext(stepCtx, r.logger)

		if transition == catalog.TransitionUploadMedia && !pkg.HasPlatform() {
			logger.Info("no platform type, parking for manual upload")
			return r.finalize(stepCtx, pkg, catalog.StateWaitingForUpload)
		}

		handler, ok := r.handlers[transition]
		if !ok {
			// The record is not in a describable state, so no error
			// state is written.
			logger.Error("no handler bound for transition")
			return services.Wrap(services.CodeEngineDefect,
				fmt.Sprintf("no handler for transition %s", transition), nil)
		}
		edge, ok := r.def.Edges[transition]
		if !ok {
			logger.Error("no edge authorized for transition")
			return services.Wrap(services.CodeEngineDefect,
				fmt.Sprintf("no edge for transition %s", transition), nil)
		}

		if transition != catalog.TransitionInitPackage {
			if err := r.persistEntry(stepCtx, pkg, edge, transition); err != nil {
				return r.fail(stepCtx, pkg, err)
			}
		}

		logger.Info("executing transition", logging.String(logging.FieldState, string(edge.From)))
		err := handler(stepCtx, pkg)
		switch {
		case errors.Is(err, ErrHalt):
			logger.Info("package removed, run complete")
			return nil
		case errors.Is(err, ErrStop):
			logger.Info("pipeline stopped early, finalizing")
			return r.finalize(stepCtx, pkg, catalog.StateReady)
		case err != nil && transition == catalog.TransitionInitPackage:
			// Init failed before the record reached a describable
			// state; surface the error without writing it back.
			logger.Error("package initialization failed", logging.Error(err))
			return err
		case err != nil:
			logger.Error("transition failed", logging.Error(err))
			return r.fail(stepCtx, pkg, err)
		}

		if err := r.enterState(stepCtx, pkg, edge.To); err != nil {
			return r.fail(stepCtx, pkg, err)
		}
		if i+1 < len(r.def.Stack) {
			next := r.def.Stack[i+1]
			if err := r.scheduleNext(stepCtx, pkg, next); err != nil {
				return r.fail(stepCtx, pkg, err)
			}
		}
	}
	return r.finalize(ctx, pkg, catalog.StateReady)
}

// persistEntry records the resume point and the transient display state
// before the transition's side effects begin.
func (r *Runner) persistEntry(ctx context.Context, pkg *catalog.Package, edge Edge, transition catalog.Transition) error {
	display, ok := r.def.Processing[transition]
	if !ok {
		display = edge.From
	}
	pkg.State = display
	pkg.LastState = edge.From
	pkg.LastTransition = transition

	if err := r.store.UpdateLastState(ctx, pkg.ID, edge.From); err != nil {
		return services.Wrap(services.CodeSavePackageData, "persist resume state", err)
	}
	if err := r.store.UpdateLastTransition(ctx, pkg.ID, transition); err != nil {
		return services.Wrap(services.CodeSavePackageData, "persist resume transition", err)
	}
	if err := r.store.UpdateState(ctx, pkg.ID, display); err != nil {
		return services.Wrap(services.CodeSavePackageData, "persist display state", err)
	}
	return nil
}

func (r *Runner) enterState(ctx context.Context, pkg *catalog.Package, state catalog.State) error {
	pkg.State = state
	pkg.LastState = state
	if err := r.store.UpdateState(ctx, pkg.ID, state); err != nil {
		return services.Wrap(services.CodeSavePackageData, "persist state", err)
	}
	if err := r.store.UpdateLastState(ctx, pkg.ID, state); err != nil {
		return services.Wrap(services.CodeSavePackageData, "persist last state", err)
	}
	return nil
}

func (r *Runner) scheduleNext(ctx context.Context, pkg *catalog.Package, next catalog.Transition) error {
	pkg.LastTransition = next
	if err := r.store.UpdateLastTransition(ctx, pkg.ID, next); err != nil {
		return services.Wrap(services.CodeSavePackageData, "persist next transition", err)
	}
	return nil
}

func (r *Runner) finalize(ctx context.Context, pkg *catalog.Package, state catalog.State) error {
	if err := r.enterState(ctx, pkg, state); err != nil {
		return r.fail(ctx, pkg, err)
	}
	logging.WithContext(ctx, r.logger).Info("package finalized",
		logging.String(logging.FieldState, string(state)))
	return nil
}

// fail writes the error classification onto the record and returns the
// original error for the caller.
func (r *Runner) fail(ctx context.Context, pkg *catalog.Package, cause error) error {
	code := services.CodeOf(cause)
	pkg.State = catalog.StateError
	pkg.ErrorCode = code

	if err := r.store.UpdateState(ctx, pkg.ID, catalog.StateError); err != nil {
		logging.WithContext(ctx, r.logger).Error("persist error state", logging.Error(err))
	}
	if err := r.store.UpdateErrorCode(ctx, pkg.ID, code); err != nil {
		logging.WithContext(ctx, r.logger).Error("persist error code", logging.Error(err))
	}
	return cause
}
