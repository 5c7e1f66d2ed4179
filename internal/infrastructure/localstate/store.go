// Package localstate keeps vasctl's per-order working state between invocations.
package localstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SessionState is what an operator set up locally for one order
type SessionState struct {
	OrderNo      string
	SelectedTask string
	Issue        string
	// DraftTask is the task whose allocation draft is open, empty when none
	DraftTask string
	// DraftQtys maps candidate IDs to their selected quantity
	DraftQtys map[string]int
	UpdatedAt time.Time
}

// HasDraft reports whether an allocation draft is open
func (s *SessionState) HasDraft() bool {
	return s.DraftTask != ""
}

// ClearDraft drops the allocation draft
func (s *SessionState) ClearDraft() {
	s.DraftTask = ""
	s.DraftQtys = nil
}

// SessionStateModel is the GORM model for SessionState
type SessionStateModel struct {
	OrderNo      string    `gorm:"column:order_no;primaryKey"`
	SelectedTask string    `gorm:"column:selected_task"`
	Issue        string    `gorm:"column:issue"`
	DraftTask    string    `gorm:"column:draft_task"`
	DraftQtys    string    `gorm:"column:draft_qtys"` // JSON object
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (SessionStateModel) TableName() string {
	return "session_states"
}

// Store persists SessionState in SQLite
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the state file at path
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	return NewStore(db)
}

// NewStore migrates db and wraps it
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&SessionStateModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}
	return &Store{db: db}, nil
}

// Load returns the state of orderNo, empty when nothing was saved
func (s *Store) Load(ctx context.Context, orderNo string) (*SessionState, error) {
	var model SessionStateModel
	result := s.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return &SessionState{OrderNo: orderNo}, nil
		}
		return nil, fmt.Errorf("failed to load session state: %w", result.Error)
	}
	return modelToState(&model)
}

// Save upserts the state
func (s *Store) Save(ctx context.Context, state *SessionState) error {
	model, err := stateToModel(state)
	if err != nil {
		return err
	}
	if result := s.db.WithContext(ctx).Save(model); result.Error != nil {
		return fmt.Errorf("failed to save session state: %w", result.Error)
	}
	return nil
}

// Delete forgets the state of orderNo
func (s *Store) Delete(ctx context.Context, orderNo string) error {
	result := s.db.WithContext(ctx).Where("order_no = ?", orderNo).Delete(&SessionStateModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session state: %w", result.Error)
	}
	return nil
}

// Close releases the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func modelToState(model *SessionStateModel) (*SessionState, error) {
	state := &SessionState{
		OrderNo:      model.OrderNo,
		SelectedTask: model.SelectedTask,
		Issue:        model.Issue,
		DraftTask:    model.DraftTask,
		UpdatedAt:    model.UpdatedAt,
	}
	if model.DraftQtys != "" {
		if err := json.Unmarshal([]byte(model.DraftQtys), &state.DraftQtys); err != nil {
			return nil, fmt.Errorf("failed to decode draft quantities: %w", err)
		}
	}
	return state, nil
}

func stateToModel(state *SessionState) (*SessionStateModel, error) {
	model := &SessionStateModel{
		OrderNo:      state.OrderNo,
		SelectedTask: state.SelectedTask,
		Issue:        state.Issue,
		DraftTask:    state.DraftTask,
		UpdatedAt:    time.Now().UTC(),
	}
	if len(state.DraftQtys) > 0 {
		data, err := json.Marshal(state.DraftQtys)
		if err != nil {
			return nil, fmt.Errorf("failed to encode draft quantities: %w", err)
		}
		model.DraftQtys = string(data)
	}
	return model, nil
}
