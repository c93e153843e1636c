package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// BackendNone is reported by a store that stands in for a missing backend.
const BackendNone = "none"

// UnavailableStore stands in when Open found no working backend. Every call
// fails with ErrUnavailable, so callers fall back to their no-cache and
// no-queue paths and the terminal keeps working online only.
type UnavailableStore struct {
	cause error
}

// NewUnavailableStore returns a store whose calls fail with ErrUnavailable
// wrapping cause.
func NewUnavailableStore(cause error) *UnavailableStore {
	return &UnavailableStore{cause: cause}
}

// IsUnavailable reports whether s is a stand-in with no backend behind it.
func IsUnavailable(s Store) bool {
	_, ok := s.(*UnavailableStore)
	return ok
}

func (s *UnavailableStore) err() error {
	switch {
	case s.cause == nil:
		return ErrUnavailable
	case errors.Is(s.cause, ErrUnavailable):
		return s.cause
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, s.cause)
	}
}

func (s *UnavailableStore) Init(context.Context) error { return s.err() }

func (s *UnavailableStore) Put(context.Context, Collection, any) (string, error) {
	return "", s.err()
}

func (s *UnavailableStore) GetAll(context.Context, Collection, ...Match) ([]json.RawMessage, error) {
	return nil, s.err()
}

func (s *UnavailableStore) Get(context.Context, Collection, string) (json.RawMessage, bool, error) {
	return nil, false, s.err()
}

func (s *UnavailableStore) Delete(context.Context, Collection, string) error { return s.err() }

func (s *UnavailableStore) Clear(context.Context, Collection) error { return s.err() }

func (s *UnavailableStore) Count(context.Context, Collection) (int, error) { return 0, s.err() }

func (s *UnavailableStore) Backend() string { return BackendNone }

func (s *UnavailableStore) Close() error { return nil }
