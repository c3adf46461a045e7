// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists chat sessions and turns. It backs the simulator's
// chat-history REST endpoints and records every completed conversation turn.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hearth-home/hearth/internal/config"
)

// Session is one persisted conversation.
type Session struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Turn is one persisted question/answer pair.
type Turn struct {
	ID        string `gorm:"primaryKey"`
	SessionID string `gorm:"index:idx_turns_session"`
	Question  string
	Answer    string
	Success   bool
	AskedAt   time.Time
}

// Store wraps the GORM connection to the history database.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewStore opens the history database and runs migrations.
func NewStore(cfg *config.DatabaseConfig, log zerolog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.GetDSN())
	case "postgres":
		dialector = postgres.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent), // Reduce GORM log noise
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.db.AutoMigrate(&Session{}, &Turn{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return s, nil
}

// RecordTurn appends one completed turn, creating the session row on first
// use. The session title is the first question, trimmed for listing.
func (s *Store) RecordTurn(ctx context.Context, sessionID, question, answer string, success bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session Session
		err := tx.First(&session, "id = ?", sessionID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			title := question
			// Cut on a rune boundary so multi-byte questions stay valid UTF-8.
			if r := []rune(title); len(r) > 80 {
				title = string(r[:80])
			}
			session = Session{ID: sessionID, Title: title}
			if err := tx.Create(&session).Error; err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load session: %w", err)
		default:
			if err := tx.Model(&session).Update("updated_at", time.Now()).Error; err != nil {
				return fmt.Errorf("failed to touch session: %w", err)
			}
		}

		turn := Turn{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Question:  question,
			Answer:    answer,
			Success:   success,
			AskedAt:   time.Now(),
		}
		if err := tx.Create(&turn).Error; err != nil {
			return fmt.Errorf("failed to record turn: %w", err)
		}
		return nil
	})
}

// Sessions lists persisted sessions, most recently updated first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	var out []Session
	if err := s.db.WithContext(ctx).Order("updated_at desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return out, nil
}

// Turns loads the turns of one session in ask order.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]Turn, error) {
	var out []Turn
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("asked_at asc").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	return out, nil
}

// TurnCount returns the number of turns in a session.
func (s *Store) TurnCount(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Turn{}).Where("session_id = ?", sessionID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return n, nil
}

// DeleteSession removes a session and its turns.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&Turn{}).Error; err != nil {
			return fmt.Errorf("failed to delete turns: %w", err)
		}
		if err := tx.Delete(&Session{}, "id = ?", sessionID).Error; err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}
