// Package ledger owns the append-only record of agent-initiated
// mutations and the compensating undo paths over it.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liftwise/coach-agent/pkg/models"
	"github.com/liftwise/coach-agent/pkg/storage"
	"github.com/rs/zerolog"
)

// Undo failure reasons. All are recoverable values, never errors; only
// storage failures propagate as errors out of this package.
const (
	ReasonNotFound          = "not_found"
	ReasonForbidden         = "forbidden"
	ReasonAlreadyUndone     = "already_undone"
	ReasonUnsupportedAction = "unsupported_action"
	ReasonInvalidAction     = "invalid_action"
	ReasonMissingTarget     = "missing_target"
	ReasonConflict          = "conflict"
)

// UndoResult reports the outcome of a single-action or turn undo. On
// turn failure ActionID names the action that blocked the whole turn.
type UndoResult struct {
	OK          bool   `json:"ok"`
	Reason      string `json:"reason,omitempty"`
	Message     string `json:"message,omitempty"`
	ActionID    uint   `json:"action_id,omitempty"`
	TurnID      string `json:"turn_id,omitempty"`
	UndoneCount int    `json:"undone_count,omitempty"`
}

type Ledger struct {
	logger zerolog.Logger
	store  storage.Storage
}

func New(logger zerolog.Logger, store storage.Storage) *Ledger {
	return &Ledger{
		logger: logger.With().Str("component", "ledger").Logger(),
		store:  store,
	}
}

// RecordSet performs the log_set domain write together with its ledger
// entry in one storage transaction. The snapshot captures the entry's
// fields at recording time so a later undo can verify nothing else
// touched the row. performedAt zero defaults to now.
func (l *Ledger) RecordSet(ctx context.Context, turnID string, args json.RawMessage, set *models.SetEntry) (*models.AgentAction, error) {
	performedAt := set.PerformedAt
	if performedAt.IsZero() {
		performedAt = time.Now().UTC()
		set.PerformedAt = performedAt
	}

	action := &models.AgentAction{
		UserID:        set.UserID,
		TurnID:        turnID,
		Kind:          models.KindLogSet,
		ArgumentsJSON: string(args),
		Status:        models.ActionCommitted,
		PerformedAt:   performedAt,
	}
	action.SetBeforeSnapshot(set.Snapshot())

	if err := l.store.CreateSetWithAction(ctx, set, action); err != nil {
		return nil, fmt.Errorf("failed to record action: %w", err)
	}

	l.logger.Debug().
		Uint("action_id", action.ID).
		Str("turn_id", turnID).
		Str("user_id", set.UserID).
		Msg("action recorded")
	return action, nil
}

func failure(reason, message string, actionID uint) UndoResult {
	return UndoResult{OK: false, Reason: reason, Message: message, ActionID: actionID}
}

func supportedKind(kind string) bool {
	return kind == models.KindLogSet
}
