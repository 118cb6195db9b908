package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/liftwise/coach-agent/pkg/blocks"
	"github.com/rs/zerolog"
)

// Registry maps tool names to runners. It is built once at startup and
// read-only afterwards, so Dispatch needs no locking.
type Registry struct {
	logger  zerolog.Logger
	runners map[string]RunnerFunc
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger:  logger.With().Str("component", "registry").Logger(),
		runners: make(map[string]RunnerFunc),
	}
}

// Add registers a context-bound runner under a name. Re-registering a
// name is a startup bug.
func (r *Registry) Add(name string, runner RunnerFunc) error {
	if _, ok := r.runners[name]; ok {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.runners[name] = runner
	r.logger.Debug().Str("tool", name).Msg("tool registered")
	return nil
}

// AddStatic registers a context-free runner under a name.
func (r *Registry) AddStatic(name string, runner StaticFunc) error {
	return r.Add(name, func(_ context.Context, args json.RawMessage, _ *Context, _ Sink) (*Result, error) {
		return runner(args)
	})
}

// Names lists the registered tool names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	return names
}

// Dispatch resolves and invokes a tool. It never fails outright: an
// unknown name, a runner error, or a runner panic all come back as a
// Result with an error-toned status block and a model payload the
// agent loop can reason about.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage, tc *Context, sink Sink) *Result {
	runner, ok := r.runners[name]
	if !ok {
		msg := fmt.Sprintf("unsupported tool %q", name)
		r.logger.Warn().Str("tool", name).Msg("dispatch of unknown tool")
		return &Result{
			Summary: msg,
			Blocks:  []blocks.Block{blocks.ErrorStatus(msg)},
			OutputForModel: map[string]any{
				"status":  "error",
				"message": msg,
			},
		}
	}

	result, err := r.invoke(ctx, runner, args, tc, sink)
	if err != nil {
		r.logger.Error().Err(err).Str("tool", name).Msg("tool runner failed")
		return &Result{
			Summary:        err.Error(),
			Blocks:         []blocks.Block{blocks.ErrorStatus(err.Error())},
			OutputForModel: map[string]any{"error": err.Error()},
		}
	}
	if result == nil {
		result = &Result{Summary: name + " completed"}
	}
	return result
}

// invoke shields Dispatch from runner panics, converting them into
// plain errors alongside the runner's own failures.
func (r *Registry) invoke(ctx context.Context, runner RunnerFunc, args json.RawMessage, tc *Context, sink Sink) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("tool panicked: %v", rec)
		}
	}()
	return runner(ctx, args, tc, sink)
}
