// Package trend implements the volume_trend tool: weekly training
// volume for one exercise, rendered as a trend series.
package trend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/liftwise/coach-agent/pkg/blocks"
	"github.com/liftwise/coach-agent/pkg/models"
	"github.com/liftwise/coach-agent/pkg/tools"
	"github.com/rs/zerolog"
)

const (
	toolName = "volume_trend"
	maxSets  = 500
)

type Input struct {
	ExerciseID string `json:"exercise_id" validate:"required"`
	Weeks      int    `json:"weeks,omitempty" validate:"min=0,max=52"`
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

	weeks := input.Weeks
	if weeks == 0 {
		weeks = 8
	}

	sets, err := tc.Store.ListSetsByUserAndExercise(ctx, tc.UserID, input.ExerciseID, maxSets)
	if err != nil {
		return nil, fmt.Errorf("failed to load sets: %w", err)
	}

	// Bucket by ISO week in the user's local offset.
	loc := time.FixedZone("user", tc.TZOffsetMin*60)
	cutoff := time.Now().In(loc).AddDate(0, 0, -7*weeks)
	volume := map[string]float64{}
	for _, set := range sets {
		at := set.PerformedAt.In(loc)
		if at.Before(cutoff) {
			continue
		}
		year, week := at.ISOWeek()
		key := fmt.Sprintf("%d-W%02d", year, week)
		volume[key] += setVolume(set)
	}

	keys := make([]string, 0, len(volume))
	for k := range volume {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := make([]blocks.TrendPoint, 0, len(keys))
	for _, k := range keys {
		points = append(points, blocks.TrendPoint{Label: k, Value: volume[k]})
	}

	summary := fmt.Sprintf("%s volume over %d weeks", input.ExerciseID, weeks)
	out := []blocks.Block{
		{Type: blocks.TypeTrend, Trend: &blocks.TrendBlock{Label: summary, Points: points}},
	}
	if suggestion := suggest(points); suggestion != "" {
		out = append(out, blocks.Block{
			Type:        blocks.TypeSuggestions,
			Suggestions: &blocks.SuggestionsBlock{Items: []string{suggestion}},
		})
	}

	return &tools.Result{
		Summary: summary,
		Blocks:  out,
		OutputForModel: map[string]any{
			"status":      "ok",
			"exercise_id": input.ExerciseID,
			"weeks":       weeks,
			"points":      points,
		},
	}, nil
}

// setVolume scores one set: reps x weight when loaded, duration in
// minutes otherwise, bare reps as a floor.
func setVolume(set models.SetEntry) float64 {
	if set.Weight > 0 && set.Reps > 0 {
		return float64(set.Reps) * set.Weight
	}
	if set.DurationSec > 0 {
		return float64(set.DurationSec) / 60
	}
	return float64(set.Reps)
}

func suggest(points []blocks.TrendPoint) string {
	if len(points) < 2 {
		return "Log a few more weeks to see a trend."
	}
	last, prev := points[len(points)-1].Value, points[len(points)-2].Value
	switch {
	case last > prev:
		return "Volume is trending up. Keep recovery in mind."
	case last < prev:
		return "Volume dipped this week. A lighter week is fine."
	default:
		return ""
	}
}
