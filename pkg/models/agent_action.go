package models

import (
	"encoding/json"
	"time"
)

// Action status values. An action is immutable except for the single
// transition committed -> undone, which also stamps UndoneAt.
const (
	ActionCommitted = "committed"
	ActionUndone    = "undone"
)

// Action kinds. New kinds append here; existing records keep decoding.
const (
	KindLogSet = "log_set"
)

// LegacySnapshotKey is where pre-snapshot-capture records embedded the
// prior entity state inside the arguments payload. Kept for records
// written before BeforeJSON existed.
const LegacySnapshotKey = "previous"

// AgentAction is one ledger record per committed agent-initiated
// mutation, carrying enough state to reverse it later.
type AgentAction struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt       time.Time  `json:"created_at"`
	UserID          string     `gorm:"type:varchar(64);index:idx_actions_user_turn;not null" json:"user_id"`
	TurnID          string     `gorm:"type:varchar(64);index:idx_actions_user_turn;not null" json:"turn_id"`
	Kind            string     `gorm:"type:varchar(32);not null" json:"kind"`
	ArgumentsJSON   string     `gorm:"type:text" json:"arguments_json,omitempty"`
	AffectedIDsJSON string     `gorm:"type:text" json:"affected_ids_json"`
	BeforeJSON      string     `gorm:"type:text" json:"before_json,omitempty"`
	Status          string     `gorm:"type:varchar(16);index;not null" json:"status"`
	PerformedAt     time.Time  `gorm:"index" json:"performed_at"`
	UndoneAt        *time.Time `json:"undone_at,omitempty"`
}

// SetAffectedIDs encodes the ordered list of touched entity ids.
func (a *AgentAction) SetAffectedIDs(ids []uint) {
	data, _ := json.Marshal(ids)
	a.AffectedIDsJSON = string(data)
}

// AffectedIDs decodes the ordered list of touched entity ids. An empty
// or malformed payload decodes to nil.
func (a *AgentAction) AffectedIDs() []uint {
	if a.AffectedIDsJSON == "" {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal([]byte(a.AffectedIDsJSON), &ids); err != nil {
		return nil
	}
	return ids
}

// SetBeforeSnapshot encodes the prior-state snapshot.
func (a *AgentAction) SetBeforeSnapshot(snap SetSnapshot) {
	data, _ := json.Marshal(snap)
	a.BeforeJSON = string(data)
}

// BeforeSnapshot decodes the prior-state snapshot. When BeforeJSON is
// absent it falls back to the legacy copy embedded in the arguments
// payload under LegacySnapshotKey. ok is false when neither exists.
func (a *AgentAction) BeforeSnapshot() (SetSnapshot, bool) {
	if a.BeforeJSON != "" {
		var snap SetSnapshot
		if err := json.Unmarshal([]byte(a.BeforeJSON), &snap); err == nil {
			return snap, true
		}
	}
	if a.ArgumentsJSON == "" {
		return SetSnapshot{}, false
	}
	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(a.ArgumentsJSON), &args); err != nil {
		return SetSnapshot{}, false
	}
	raw, ok := args[LegacySnapshotKey]
	if !ok {
		return SetSnapshot{}, false
	}
	var snap SetSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return SetSnapshot{}, false
	}
	return snap, true
}

// TargetID resolves the entity the undo path operates on. Current kinds
// are single-entity, so the target is the first affected id.
func (a *AgentAction) TargetID() (uint, bool) {
	ids := a.AffectedIDs()
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}
