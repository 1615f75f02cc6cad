package bootstrap

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"liveboard/internal/model"
)

// GormSetStore backs the resolver with the relational store
type GormSetStore struct {
	db *gorm.DB
}

// NewGormSetStore creates a store over an open gorm connection
func NewGormSetStore(db *gorm.DB) *GormSetStore {
	return &GormSetStore{db: db}
}

// FindSetByCode looks a set up by its public code
func (s *GormSetStore) FindSetByCode(ctx context.Context, code string) (*model.QuestionSet, error) {
	var set model.QuestionSet
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&set).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &set, nil
}

// QuestionsForSet fetches the set's questions in position order
func (s *GormSetStore) QuestionsForSet(ctx context.Context, setID int64) ([]model.Question, error) {
	questions := make([]model.Question, 0)
	err := s.db.WithContext(ctx).
		Where("set_id = ?", setID).
		Order("position ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}
