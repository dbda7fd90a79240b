package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/protonrent/telegram-relay/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriberStore is the single source of truth for notification eligibility.
// Add and Remove are idempotent and atomic per chat id, so concurrent
// (un)registration by the same user cannot corrupt the set.
type SubscriberStore struct {
	db *gorm.DB
}

func NewSubscriberStore(db *gorm.DB) (*SubscriberStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	return &SubscriberStore{db: db}, nil
}

// Add inserts the chat id, ignoring duplicates.
func (s *SubscriberStore) Add(ctx context.Context, chatID string) error {
	trimmed := strings.TrimSpace(chatID)
	if trimmed == "" {
		return fmt.Errorf("%w: chat id is required", domain.ErrValidation)
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Subscriber{ChatID: trimmed}).Error
	if err != nil {
		return fmt.Errorf("failed to add subscriber: %w", err)
	}
	return nil
}

// Remove deletes the chat id; removing an absent id is not an error.
func (s *SubscriberStore) Remove(ctx context.Context, chatID string) error {
	trimmed := strings.TrimSpace(chatID)
	if trimmed == "" {
		return fmt.Errorf("%w: chat id is required", domain.ErrValidation)
	}

	err := s.db.WithContext(ctx).
		Where("chat_id = ?", trimmed).
		Delete(&domain.Subscriber{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove subscriber: %w", err)
	}
	return nil
}

// Exists reports whether the chat id is eligible for notifications.
func (s *SubscriberStore) Exists(ctx context.Context, chatID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.Subscriber{}).
		Where("chat_id = ?", strings.TrimSpace(chatID)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query subscriber: %w", err)
	}
	return count > 0, nil
}

// List returns every subscribed chat id.
func (s *SubscriberStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&domain.Subscriber{}).
		Pluck("chat_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return ids, nil
}
