package storage

import (
	"context"
	"errors"
	"time"

	"github.com/liftwise/coach-agent/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
// Callers distinguish it from infrastructure failures.
var ErrNotFound = errors.New("record not found")

// Storage is the adapter over the persistent store. It performs no
// authorization of its own; the ledger scopes every read and undo to the
// owning user.
type Storage interface {
	// Set entry operations
	CreateSet(ctx context.Context, set *models.SetEntry) error
	GetSet(ctx context.Context, id uint) (*models.SetEntry, error)
	DeleteSet(ctx context.Context, id uint) error
	ListSetsByUser(ctx context.Context, userID string, limit, offset int) ([]models.SetEntry, int64, error)
	ListSetsByUserAndExercise(ctx context.Context, userID, exerciseID string, limit int) ([]models.SetEntry, error)

	// Ledger operations
	CreateAction(ctx context.Context, action *models.AgentAction) error
	GetAction(ctx context.Context, id uint) (*models.AgentAction, error)
	GetActionsByUserAndTurn(ctx context.Context, userID, turnID string) ([]models.AgentAction, error)
	MarkActionUndone(ctx context.Context, id uint, at time.Time) error

	// CreateSetWithAction commits the domain write and its ledger record
	// in one transaction: both land or neither does.
	CreateSetWithAction(ctx context.Context, set *models.SetEntry, action *models.AgentAction) error

	// Lifecycle
	Close() error
}
