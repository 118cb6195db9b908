package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/liftwise/coach-agent/pkg/blocks"
	"github.com/liftwise/coach-agent/pkg/stream"
	"github.com/liftwise/coach-agent/pkg/tools"
)

var errNoIdentity = errors.New("missing user identity")

func headerIdentity(r *http.Request) (string, error) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		return "", errNoIdentity
	}
	return userID, nil
}

// DispatchRequest is the body of POST /v1/dispatch.
type DispatchRequest struct {
	Tool        string          `json:"tool"`
	Args        json.RawMessage `json:"args,omitempty"`
	TurnID      string          `json:"turn_id"`
	Utterance   string          `json:"utterance,omitempty"`
	DefaultUnit string          `json:"default_unit,omitempty"`
	TZOffsetMin int             `json:"tz_offset_min,omitempty"`
}

type undoActionRequest struct {
	ActionID uint `json:"action_id"`
}

type undoTurnRequest struct {
	TurnID string `json:"turn_id"`
}

// Routes registers the HTTP surface on a mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/dispatch", s.handleDispatch)
	mux.HandleFunc("POST /v1/undo/action", s.handleUndoAction)
	mux.HandleFunc("POST /v1/undo/turn", s.handleUndoTurn)
}

// handleDispatch runs one tool call and streams its block batches as
// they arrive, then the final result, then a terminal event. A client
// disconnect mid-call is fire-and-forget: the runner completes and its
// durable effects remain.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	userID, err := s.resolve(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Tool == "" || req.TurnID == "" {
		http.Error(w, "tool and turn_id are required", http.StatusBadRequest)
		return
	}

	tc := &tools.Context{
		Store:       s.storage,
		Ledger:      s.ledger,
		UserID:      userID,
		TurnID:      req.TurnID,
		DefaultUnit: req.DefaultUnit,
		TZOffsetMin: req.TZOffsetMin,
		Utterance:   req.Utterance,
		Logger:      s.logger,
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	sw := stream.NewWriter(w)
	sink := func(batch []blocks.Block) {
		// Write errors mean the client went away; the tool call keeps
		// running regardless.
		_ = sw.WriteBlocks(batch)
	}

	// The runner must complete even if the client disconnects, so the
	// dispatch context survives request cancellation.
	result := s.registry.Dispatch(context.WithoutCancel(r.Context()), req.Tool, req.Args, tc, sink)

	_ = sw.WriteResult(result)
	_ = sw.WriteDone()
}

func (s *Server) handleUndoAction(w http.ResponseWriter, r *http.Request) {
	userID, err := s.resolve(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req undoActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ActionID == 0 {
		http.Error(w, "action_id is required", http.StatusBadRequest)
		return
	}

	res, err := s.ledger.UndoAction(r.Context(), req.ActionID, userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("undo action failed")
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, res)
}

func (s *Server) handleUndoTurn(w http.ResponseWriter, r *http.Request) {
	userID, err := s.resolve(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req undoTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TurnID == "" {
		http.Error(w, "turn_id is required", http.StatusBadRequest)
		return
	}

	res, err := s.ledger.UndoTurn(r.Context(), req.TurnID, userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("undo turn failed")
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, res)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	// Domain failures still answer 200: the reason field carries the
	// outcome, and callers need the value either way.
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}
