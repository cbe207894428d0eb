package memory

import (
	"context"
	"sort"
	"sync"

	"ledger/internal/core"
	"ledger/internal/store"
)

// Store keeps users and operations in maps. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	users map[int64]core.User
	ops   map[int64]core.Operation
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users: map[int64]core.User{},
		ops:   map[int64]core.Operation{},
	}
}

func (s *Store) InsertUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return core.ErrConflict
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) FindUser(_ context.Context, id int64) (core.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *Store) FindUserByCredentials(_ context.Context, username, password string) (core.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range sortedKeys(s.users) {
		u := s.users[id]
		if u.Username == username && u.Password == password {
			return u, true, nil
		}
	}
	return core.User{}, false, nil
}

func (s *Store) UpdateUser(_ context.Context, u core.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return 0, nil
	}
	s.users[u.ID] = u
	return 1, nil
}

func (s *Store) MaxUserID(_ context.Context) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maxKey(s.users)
}

func (s *Store) InsertOperation(_ context.Context, op core.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[op.ID]; ok {
		return core.ErrConflict
	}
	s.ops[op.ID] = op
	return nil
}

func (s *Store) FindOperation(_ context.Context, id int64) (core.Operation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[id]
	return op, ok, nil
}

// FindOperations returns matches in id order.
func (s *Store) FindOperations(_ context.Context, f store.OperationFilter) ([]core.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Operation
	for _, id := range sortedKeys(s.ops) {
		if op := s.ops[id]; f.Match(op) {
			out = append(out, op)
		}
	}
	return out, nil
}

func (s *Store) UpdateOperation(_ context.Context, op core.Operation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[op.ID]; !ok {
		return 0, nil
	}
	s.ops[op.ID] = op
	return 1, nil
}

func (s *Store) DeleteOperation(_ context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[id]; !ok {
		return 0, nil
	}
	delete(s.ops, id)
	return 1, nil
}

func (s *Store) MaxOperationID(_ context.Context) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maxKey(s.ops)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func maxKey[V any](m map[int64]V) (int64, bool, error) {
	var hi int64
	found := false
	for k := range m {
		if !found || k > hi {
			hi, found = k, true
		}
	}
	return hi, found, nil
}
