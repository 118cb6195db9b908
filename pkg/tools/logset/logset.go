// Package logset implements the log_set tool: it records one workout
// set, writes the compensating ledger entry in the same transaction,
// and hands the caller an undo affordance.
package logset

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/liftwise/coach-agent/pkg/blocks"
	"github.com/liftwise/coach-agent/pkg/durparse"
	"github.com/liftwise/coach-agent/pkg/models"
	"github.com/liftwise/coach-agent/pkg/tools"
	"github.com/rs/zerolog"
)

const toolName = "log_set"

type Input struct {
	ExerciseID  string  `json:"exercise_id" validate:"required"`
	Reps        int     `json:"reps,omitempty" validate:"min=0,max=1000"`
	DurationSec int     `json:"duration_sec,omitempty" validate:"min=0,max=86400"`
	Weight      float64 `json:"weight,omitempty" validate:"min=0,max=2000"`
	Unit        string  `json:"unit,omitempty" validate:"omitempty,oneof=lbs kg"`
	PerformedAt string  `json:"performed_at,omitempty"` // RFC 3339, defaults to now
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

func (t *Tool) Run(ctx context.Context, args json.RawMessage, tc *tools.Context, sink tools.Sink) (*tools.Result, error) {
	var input Input
	if len(args) > 0 {
		if err := json.Unmarshal(args, &input); err != nil {
			return nil, fmt.Errorf("malformed arguments: %w", err)
		}
	}
	if err := t.validator.Struct(input); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	// Prefer a deterministic parse of the utterance over the
	// model-proposed duration: a targeted grammar is more reliable
	// than free-form numeric extraction.
	if tc.Utterance != "" {
		if secs, ok := durparse.Parse(tc.Utterance); ok {
			if secs != input.DurationSec {
				t.logger.Debug().
					Int("model_proposed", input.DurationSec).
					Int("parsed", secs).
					Msg("using parsed duration over model-proposed value")
			}
			input.DurationSec = secs
		}
	}

	unit := input.Unit
	if unit == "" {
		unit = tc.DefaultUnit
	}

	performedAt := time.Now().UTC()
	if input.PerformedAt != "" {
		parsed, err := time.Parse(time.RFC3339, input.PerformedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid performed_at: %w", err)
		}
		performedAt = parsed.UTC()
	}

	set := &models.SetEntry{
		UserID:      tc.UserID,
		ExerciseID:  input.ExerciseID,
		Reps:        input.Reps,
		DurationSec: input.DurationSec,
		Weight:      input.Weight,
		Unit:        unit,
		PerformedAt: performedAt,
	}

	// The ledger keeps the inputs the mutation was actually performed
	// with, so the duration override and resolved defaults must land in
	// the recorded arguments, not the model's original proposal.
	input.Unit = unit
	input.PerformedAt = performedAt.Format(time.RFC3339Nano)
	effectiveArgs, _ := json.Marshal(input)

	action, err := tc.Ledger.RecordSet(ctx, tc.TurnID, effectiveArgs, set)
	if err != nil {
		return nil, err
	}

	// The set is durable at this point; let the client show progress
	// before the richer summary blocks are assembled.
	first := []blocks.Block{blocks.Success(fmt.Sprintf("Logged %s", input.ExerciseID))}
	if sink != nil {
		sink(first)
	}

	rest := summaryBlocks(set, action)
	if sink != nil {
		sink(rest)
	}

	summary := fmt.Sprintf("Logged %s: %s", input.ExerciseID, describe(set))
	return &tools.Result{
		Summary: summary,
		Blocks:  append(first, rest...),
		OutputForModel: map[string]any{
			"status":    "ok",
			"set_id":    set.ID,
			"action_id": action.ID,
			"summary":   summary,
		},
	}, nil
}

func summaryBlocks(set *models.SetEntry, action *models.AgentAction) []blocks.Block {
	out := make([]blocks.Block, 0, 3)
	if set.Reps > 0 {
		out = append(out, blocks.Metric("Reps", float64(set.Reps), ""))
	}
	if set.Weight > 0 {
		out = append(out, blocks.Metric("Weight", set.Weight, set.Unit))
	}
	if set.DurationSec > 0 {
		out = append(out, blocks.Metric("Duration", float64(set.DurationSec), "sec"))
	}
	out = append(out, blocks.Undo(action.ID, action.TurnID, "Undo this set"))
	return out
}

func describe(set *models.SetEntry) string {
	switch {
	case set.Reps > 0 && set.Weight > 0:
		return fmt.Sprintf("%d reps at %g %s", set.Reps, set.Weight, set.Unit)
	case set.DurationSec > 0:
		return fmt.Sprintf("%d seconds", set.DurationSec)
	default:
		return fmt.Sprintf("%d reps", set.Reps)
	}
}
