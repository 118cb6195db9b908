// Package prefs implements the set_units tool: a client-local
// preference toggle with no server-side effect, so it runs context-free.
package prefs

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/liftwise/coach-agent/pkg/blocks"
	"github.com/liftwise/coach-agent/pkg/tools"
	"github.com/rs/zerolog"
)

const toolName = "set_units"

type Input struct {
	Unit string `json:"unit" validate:"required,oneof=lbs kg"`
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
	return reg.AddStatic(toolName, t.Run)
}

func (t *Tool) Run(args json.RawMessage) (*tools.Result, error) {
	var input Input
	if len(args) > 0 {
		if err := json.Unmarshal(args, &input); err != nil {
			return nil, fmt.Errorf("malformed arguments: %w", err)
		}
	}
	if err := t.validator.Struct(input); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	directive, _ := json.Marshal(map[string]string{"unit": input.Unit})
	summary := fmt.Sprintf("Display units set to %s", input.Unit)
	return &tools.Result{
		Summary: summary,
		Blocks: []blocks.Block{
			blocks.Directive(toolName, directive),
			blocks.Success(summary),
		},
		OutputForModel: map[string]any{"status": "ok", "unit": input.Unit},
	}, nil
}
