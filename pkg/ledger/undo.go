package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liftwise/coach-agent/pkg/models"
	"github.com/liftwise/coach-agent/pkg/storage"
)

// validated is the outcome of the read-only undo checks for one action:
// the resolved target row, ready to delete.
type validated struct {
	action *models.AgentAction
	target uint
}

// validate runs the non-mutating undo checks for a fetched action:
// kind support, target resolution, target existence and the snapshot
// conflict comparison. Ownership and already-undone are checked by the
// callers, which differ in how they scope the query.
func (l *Ledger) validate(ctx context.Context, action *models.AgentAction) (validated, UndoResult, error) {
	if !supportedKind(action.Kind) {
		return validated{}, failure(ReasonUnsupportedAction,
			fmt.Sprintf("undo is not supported for %q actions", action.Kind), action.ID), nil
	}

	target, ok := action.TargetID()
	if !ok {
		return validated{}, failure(ReasonInvalidAction,
			"action has no affected entity reference", action.ID), nil
	}

	live, err := l.store.GetSet(ctx, target)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return validated{}, failure(ReasonMissingTarget,
				fmt.Sprintf("set %d no longer exists", target), action.ID), nil
		}
		return validated{}, UndoResult{}, err
	}

	// Conflict check. No snapshot at all means a record from before
	// snapshot capture existed; those undo without verification.
	if snap, ok := action.BeforeSnapshot(); ok {
		if !snap.Matches(live) {
			return validated{}, failure(ReasonConflict,
				fmt.Sprintf("set %d was modified after this action was recorded", target), action.ID), nil
		}
	}

	return validated{action: action, target: target}, UndoResult{OK: true}, nil
}

// UndoAction reverses a single committed action. Domain failures come
// back as a typed result; only storage failures return an error.
func (l *Ledger) UndoAction(ctx context.Context, actionID uint, callerUserID string) (UndoResult, error) {
	action, err := l.store.GetAction(ctx, actionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return failure(ReasonNotFound, fmt.Sprintf("action %d not found", actionID), actionID), nil
		}
		return UndoResult{}, fmt.Errorf("failed to fetch action: %w", err)
	}

	// Ownership before anything else: a caller must not learn about
	// another user's actions through undo error shapes.
	if action.UserID != callerUserID {
		return failure(ReasonForbidden, "action belongs to another user", actionID), nil
	}

	if action.Status == models.ActionUndone {
		return failure(ReasonAlreadyUndone, "action was already undone", actionID), nil
	}

	v, res, err := l.validate(ctx, action)
	if err != nil {
		return UndoResult{}, fmt.Errorf("undo validation: %w", err)
	}
	if !res.OK {
		return res, nil
	}

	if err := l.store.DeleteSet(ctx, v.target); err != nil {
		return UndoResult{}, fmt.Errorf("failed to delete set %d: %w", v.target, err)
	}
	if err := l.store.MarkActionUndone(ctx, action.ID, time.Now().UTC()); err != nil {
		return UndoResult{}, fmt.Errorf("failed to mark action undone: %w", err)
	}

	l.logger.Info().
		Uint("action_id", action.ID).
		Str("turn_id", action.TurnID).
		Msg("action undone")
	return UndoResult{OK: true, ActionID: action.ID, TurnID: action.TurnID, UndoneCount: 1}, nil
}

// UndoTurn reverses every committed action in a conversational turn,
// most recent first. The store exposes no multi-row transaction here,
// so a validation pass over every action runs before any deletion: a
// half-undone turn is worse than no undo.
func (l *Ledger) UndoTurn(ctx context.Context, turnID string, callerUserID string) (UndoResult, error) {
	actions, err := l.store.GetActionsByUserAndTurn(ctx, callerUserID, turnID)
	if err != nil {
		return UndoResult{}, fmt.Errorf("failed to query turn actions: %w", err)
	}

	// The store returns PerformedAt descending; keep only committed.
	pending := make([]*models.AgentAction, 0, len(actions))
	for i := range actions {
		if actions[i].Status == models.ActionCommitted {
			pending = append(pending, &actions[i])
		}
	}
	if len(pending) == 0 {
		return failure(ReasonNotFound, fmt.Sprintf("no committed actions in turn %q", turnID), 0), nil
	}

	// Validation pass: nothing mutates until every action checks out.
	plan := make([]validated, 0, len(pending))
	for _, action := range pending {
		v, res, err := l.validate(ctx, action)
		if err != nil {
			return UndoResult{}, fmt.Errorf("undo validation: %w", err)
		}
		if !res.OK {
			res.TurnID = turnID
			return res, nil
		}
		plan = append(plan, v)
	}

	// Execution pass, same most-recent-first order, shared timestamp.
	undoneAt := time.Now().UTC()
	for _, v := range plan {
		if err := l.store.DeleteSet(ctx, v.target); err != nil {
			return UndoResult{}, fmt.Errorf("failed to delete set %d: %w", v.target, err)
		}
		if err := l.store.MarkActionUndone(ctx, v.action.ID, undoneAt); err != nil {
			return UndoResult{}, fmt.Errorf("failed to mark action %d undone: %w", v.action.ID, err)
		}
	}

	l.logger.Info().
		Str("turn_id", turnID).
		Int("count", len(plan)).
		Msg("turn undone")
	return UndoResult{OK: true, TurnID: turnID, UndoneCount: len(plan)}, nil
}
