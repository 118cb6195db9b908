// Package history implements the set_history tool: browsing the
// caller's logged sets and reverting agent-recorded actions.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/liftwise/coach-agent/pkg/blocks"
	"github.com/liftwise/coach-agent/pkg/ledger"
	"github.com/liftwise/coach-agent/pkg/tools"
	"github.com/rs/zerolog"
)

const (
	toolName     = "set_history"
	defaultLimit = 10
)

type Input struct {
	Action   string `json:"action" validate:"required,oneof=list undo undo_turn"`
	ActionID uint   `json:"action_id,omitempty"`
	TurnID   string `json:"turn_id,omitempty"`
	Limit    int    `json:"limit,omitempty" validate:"min=0,max=100"`
	Offset   int    `json:"offset,omitempty" validate:"min=0"`
}

type Tool struct {
	logger    zerolog.Logger
	validator *validator.Validate
}

func New(logger zerolog.Logger) *Tool {
	return &Tool{
		logger:    logger.With().Str("tool", toolName).Logger(),
		validator: validator.New(),
	}
}

func (t *Tool) Register(reg *tools.Registry) error {
	return reg.Add(toolName, t.Run)
}

func (t *Tool) Run(ctx context.Context, args json.RawMessage, tc *tools.Context, _ tools.Sink) (*tools.Result, error) {
	var input Input
	if len(args) > 0 {
		if err := json.Unmarshal(args, &input); err != nil {
			return nil, fmt.Errorf("malformed arguments: %w", err)
		}
	}
	if err := t.validator.Struct(input); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	switch input.Action {
	case "list":
		return t.list(ctx, input, tc)
	case "undo":
		if input.ActionID == 0 {
			return nil, fmt.Errorf("action_id is required for undo")
		}
		res, err := tc.Ledger.UndoAction(ctx, input.ActionID, tc.UserID)
		if err != nil {
			return nil, err
		}
		return undoResult(res), nil
	case "undo_turn":
		turnID := input.TurnID
		if turnID == "" {
			turnID = tc.TurnID
		}
		res, err := tc.Ledger.UndoTurn(ctx, turnID, tc.UserID)
		if err != nil {
			return nil, err
		}
		return undoResult(res), nil
	}
	return nil, fmt.Errorf("unknown action %q", input.Action)
}

func (t *Tool) list(ctx context.Context, input Input, tc *tools.Context) (*tools.Result, error) {
	limit := input.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	sets, total, err := tc.Store.ListSetsByUser(ctx, tc.UserID, limit, input.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sets: %w", err)
	}

	rows := make([][]string, 0, len(sets))
	for _, set := range sets {
		rows = append(rows, []string{
			set.PerformedAt.Format("2006-01-02 15:04"),
			set.ExerciseID,
			strconv.Itoa(set.Reps),
			formatWeight(set.Weight, set.Unit),
			formatDuration(set.DurationSec),
		})
	}

	summary := fmt.Sprintf("%d of %d sets", len(sets), total)
	return &tools.Result{
		Summary: summary,
		Blocks: []blocks.Block{
			{Type: blocks.TypeTable, Table: &blocks.TableBlock{
				Title:   "Recent sets",
				Columns: []string{"When", "Exercise", "Reps", "Weight", "Duration"},
				Rows:    rows,
			}},
		},
		OutputForModel: map[string]any{
			"status": "ok",
			"total":  total,
			"limit":  limit,
			"offset": input.Offset,
			"sets":   sets,
		},
	}, nil
}

// undoResult converts a ledger outcome into blocks. Failure reasons
// surface verbatim so the UI can explain rather than silently fail.
func undoResult(res ledger.UndoResult) *tools.Result {
	if !res.OK {
		msg := fmt.Sprintf("Undo failed (%s): %s", res.Reason, res.Message)
		return &tools.Result{
			Summary: msg,
			Blocks:  []blocks.Block{blocks.ErrorStatus(msg)},
			OutputForModel: map[string]any{
				"status":    "error",
				"reason":    res.Reason,
				"message":   res.Message,
				"action_id": res.ActionID,
			},
		}
	}

	var msg string
	if res.UndoneCount > 1 {
		msg = fmt.Sprintf("Undid %d actions", res.UndoneCount)
	} else {
		msg = "Action undone"
	}
	return &tools.Result{
		Summary: msg,
		Blocks:  []blocks.Block{blocks.Success(msg)},
		OutputForModel: map[string]any{
			"status":       "ok",
			"undone_count": res.UndoneCount,
			"turn_id":      res.TurnID,
		},
	}
}

func formatWeight(weight float64, unit string) string {
	if weight == 0 {
		return "-"
	}
	return fmt.Sprintf("%g %s", weight, unit)
}

func formatDuration(secs int) string {
	if secs == 0 {
		return "-"
	}
	return (time.Duration(secs) * time.Second).String()
}
