package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liftwise/coach-agent/pkg/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type SQLiteStorage struct {
	db *gorm.DB
}

type Config struct {
	DatabasePath string
	Debug        bool
}

func NewSQLiteStorage(cfg Config) (*SQLiteStorage, error) {
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	database, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// Auto-migrate schema
	if err := database.AutoMigrate(&models.SetEntry{}, &models.AgentAction{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStorage{db: database}, nil
}

func (s *SQLiteStorage) CreateSet(ctx context.Context, set *models.SetEntry) error {
	return s.db.WithContext(ctx).Create(set).Error
}

func (s *SQLiteStorage) GetSet(ctx context.Context, id uint) (*models.SetEntry, error) {
	var set models.SetEntry
	err := s.db.WithContext(ctx).First(&set, id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &set, nil
}

func (s *SQLiteStorage) DeleteSet(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.SetEntry{}, id).Error
}

func (s *SQLiteStorage) ListSetsByUser(ctx context.Context, userID string, limit, offset int) ([]models.SetEntry, int64, error) {
	var sets []models.SetEntry
	var total int64

	s.db.WithContext(ctx).Model(&models.SetEntry{}).Where("user_id = ?", userID).Count(&total)

	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("performed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&sets).Error
	return sets, total, err
}

func (s *SQLiteStorage) ListSetsByUserAndExercise(ctx context.Context, userID, exerciseID string, limit int) ([]models.SetEntry, error) {
	var sets []models.SetEntry
	query := s.db.WithContext(ctx).
		Where("user_id = ? AND exercise_id = ?", userID, exerciseID).
		Order("performed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&sets).Error
	return sets, err
}

func (s *SQLiteStorage) CreateAction(ctx context.Context, action *models.AgentAction) error {
	return s.db.WithContext(ctx).Create(action).Error
}

func (s *SQLiteStorage) GetAction(ctx context.Context, id uint) (*models.AgentAction, error) {
	var action models.AgentAction
	err := s.db.WithContext(ctx).First(&action, id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &action, nil
}

func (s *SQLiteStorage) GetActionsByUserAndTurn(ctx context.Context, userID, turnID string) ([]models.AgentAction, error) {
	var actions []models.AgentAction
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND turn_id = ?", userID, turnID).
		Order("performed_at DESC").
		Find(&actions).Error
	return actions, err
}

func (s *SQLiteStorage) MarkActionUndone(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.AgentAction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":    models.ActionUndone,
			"undone_at": at,
		}).Error
}

func (s *SQLiteStorage) CreateSetWithAction(ctx context.Context, set *models.SetEntry, action *models.AgentAction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(set).Error; err != nil {
			return err
		}
		// The ledger entry references the id assigned to the set above.
		action.SetAffectedIDs([]uint{set.ID})
		return tx.Create(action).Error
	})
}

func (s *SQLiteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
