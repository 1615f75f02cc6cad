// Package bootstrap resolves a human-entered question set code (and optional
// password) into the ordered question list a session presents. It runs once
// before or during a session and is not part of the live sync protocol.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"

	"liveboard/internal/model"
)

var (
	// ErrNotFound means the code does not resolve to a question set
	ErrNotFound = errors.New("question set not found")
	// ErrUnauthorized means the supplied password does not match the stored
	// one (an empty supplied password against a protected set included)
	ErrUnauthorized = errors.New("question set password mismatch")
)

// SetStore is the lookup the resolver depends on. The gorm implementation
// lives in this package; tests substitute an in-memory fake.
type SetStore interface {
	// FindSetByCode returns the set record for a code, ErrNotFound when absent
	FindSetByCode(ctx context.Context, code string) (*model.QuestionSet, error)
	// QuestionsForSet returns the set's questions in stored order
	QuestionsForSet(ctx context.Context, setID int64) ([]model.Question, error)
}

// Resolver gates question set access
type Resolver struct {
	store SetStore
}

// NewResolver creates a resolver over a set store
func NewResolver(store SetStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve looks up a set by code, checks its password gate and returns its
// questions in order. An empty set resolves to an empty (non-nil) slice.
func (r *Resolver) Resolve(ctx context.Context, code, password string) ([]model.Question, error) {
	set, err := r.store.FindSetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("bootstrap: set lookup failed for %q: %w", code, err)
	}

	if set.Password != "" && set.Password != password {
		return nil, ErrUnauthorized
	}

	questions, err := r.store.QuestionsForSet(ctx, set.ID)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: question fetch failed for set %q: %w", code, err)
	}
	if questions == nil {
		questions = []model.Question{}
	}

	log.Printf("[Bootstrap] Resolved set %s (%d questions)", code, len(questions))
	return questions, nil
}
