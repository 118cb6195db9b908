package models

import (
	"time"
)

// SetEntry is one logged workout set. It is the entity mutated by the
// log_set tool and the target of its compensating undo.
type SetEntry struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UserID      string    `gorm:"type:varchar(64);index;not null" json:"user_id"`
	ExerciseID  string    `gorm:"type:varchar(64);index;not null" json:"exercise_id"`
	Reps        int       `json:"reps"`
	DurationSec int       `json:"duration_sec,omitempty"`
	Weight      float64   `json:"weight,omitempty"`
	Unit        string    `gorm:"type:varchar(8)" json:"unit,omitempty"`
	PerformedAt time.Time `gorm:"index" json:"performed_at"`
}

// SetSnapshot is the tracked-field projection of a SetEntry captured at
// action-recording time. Conflict detection compares every field here
// against the live entity before an undo is allowed to delete it.
type SetSnapshot struct {
	UserID      string    `json:"user_id"`
	ExerciseID  string    `json:"exercise_id"`
	Reps        int       `json:"reps"`
	DurationSec int       `json:"duration_sec"`
	Weight      float64   `json:"weight"`
	Unit        string    `json:"unit"`
	PerformedAt time.Time `json:"performed_at"`
}

// Snapshot captures the entry's tracked fields.
func (s *SetEntry) Snapshot() SetSnapshot {
	return SetSnapshot{
		UserID:      s.UserID,
		ExerciseID:  s.ExerciseID,
		Reps:        s.Reps,
		DurationSec: s.DurationSec,
		Weight:      s.Weight,
		Unit:        s.Unit,
		PerformedAt: s.PerformedAt,
	}
}

// Matches reports whether the live entry still agrees with the snapshot
// on every tracked field. Timestamps compare by instant, not location.
func (snap SetSnapshot) Matches(live *SetEntry) bool {
	return snap.UserID == live.UserID &&
		snap.ExerciseID == live.ExerciseID &&
		snap.Reps == live.Reps &&
		snap.DurationSec == live.DurationSec &&
		snap.Weight == live.Weight &&
		snap.Unit == live.Unit &&
		snap.PerformedAt.Equal(live.PerformedAt)
}
