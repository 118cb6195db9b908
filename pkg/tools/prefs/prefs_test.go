package prefs

import (
	"encoding/json"
	"testing"

	"github.com/liftwise/coach-agent/pkg/blocks"
	"github.com/rs/zerolog"
)

func TestRun(t *testing.T) {
	result, err := New(zerolog.Nop()).Run(json.RawMessage(`{"unit":"kg"}`))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(result.Blocks))
	}
	if result.Blocks[0].Type != blocks.TypeDirective {
		t.Errorf("expected directive block, got %s", result.Blocks[0].Type)
	}
	if result.Blocks[0].Directive.Name != "set_units" {
		t.Errorf("unexpected directive name %q", result.Blocks[0].Directive.Name)
	}

	var args map[string]string
	if err := json.Unmarshal(result.Blocks[0].Directive.Args, &args); err != nil {
		t.Fatalf("directive args: %v", err)
	}
	if args["unit"] != "kg" {
		t.Errorf("expected kg, got %q", args["unit"])
	}
}

func TestRun_RejectsUnknownUnit(t *testing.T) {
	if _, err := New(zerolog.Nop()).Run(json.RawMessage(`{"unit":"stone"}`)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRun_RejectsMissingUnit(t *testing.T) {
	if _, err := New(zerolog.Nop()).Run(json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected validation error")
	}
}
