// Package tools holds the registry and dispatcher the agent loop calls
// into, plus the shared context and result types every runner sees.
package tools

import (
	"context"
	"encoding/json"

	"github.com/liftwise/coach-agent/pkg/blocks"
	"github.com/liftwise/coach-agent/pkg/ledger"
	"github.com/liftwise/coach-agent/pkg/storage"
	"github.com/rs/zerolog"
)

// Context carries everything a context-bound runner needs for one
// invocation. It is caller-owned and ephemeral; runners must not stash
// it beyond the call.
type Context struct {
	Store       storage.Storage
	Ledger      *ledger.Ledger
	UserID      string
	TurnID      string
	DefaultUnit string
	TZOffsetMin int
	Utterance   string // raw user message, empty when unavailable
	Logger      zerolog.Logger
}

// Result is what a runner returns: a one-line summary for logs and
// toasts, the ordered display blocks for the human surface, and the
// compact payload fed back to the model loop.
type Result struct {
	Summary        string         `json:"summary"`
	Blocks         []blocks.Block `json:"blocks"`
	OutputForModel any            `json:"output_for_model,omitempty"`
}

// Sink receives partial block batches while a runner is still working.
// Batches are additive: concatenating every batch in call order equals
// the final Result.Blocks exactly.
type Sink func(batch []blocks.Block)

// RunnerFunc is a context-bound runner. sink may be nil when the caller
// does not stream.
type RunnerFunc func(ctx context.Context, args json.RawMessage, tc *Context, sink Sink) (*Result, error)

// StaticFunc is a context-free runner: a pure function of its
// arguments, used for client-local effects with no server-side state.
type StaticFunc func(args json.RawMessage) (*Result, error)

// Tool registers one or more named runners with the registry.
type Tool interface {
	Register(reg *Registry) error
}

// ModelOutput marshals the model-facing payload of a result. A payload
// that fails to marshal degrades to an error object rather than
// breaking the model loop.
func (r *Result) ModelOutput() json.RawMessage {
	if r.OutputForModel == nil {
		return json.RawMessage(`{}`)
	}
	data, err := json.Marshal(r.OutputForModel)
	if err != nil {
		return json.RawMessage(`{"status":"error","message":"unencodable tool output"}`)
	}
	return data
}
