package ledger

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store"
)

// UserResolver answers whether a user id exists. The operation ledger
// depends on this rather than on the registry itself.
type UserResolver interface {
	Resolve(ctx context.Context, id int64) (core.User, bool, error)
}

// ResolverFunc adapts a plain function to UserResolver.
type ResolverFunc func(ctx context.Context, id int64) (core.User, bool, error)

func (f ResolverFunc) Resolve(ctx context.Context, id int64) (core.User, bool, error) {
	return f(ctx, id)
}

// Registry owns the user collection.
type Registry struct {
	users  store.UserStore
	ids    *Allocator
	logger *log.Logger
	events *log.StructuredLogger

	// serializes allocate+insert
	mu sync.Mutex
}

func NewRegistry(users store.UserStore, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentRegistry)
	return &Registry{
		users:  users,
		ids:    NewAllocator(),
		logger: logger,
		events: log.NewStructuredLogger(logger),
	}
}

// SignUp validates the candidate, assigns it a fresh id and stores it.
// Any id on the candidate is ignored.
func (r *Registry) SignUp(ctx context.Context, candidate core.User) (core.User, error) {
	if err := candidate.Validate(); err != nil {
		return core.User{}, err
	}

	u, err := r.insert(ctx, candidate)
	if err != nil {
		r.events.LogError(ctx, "Sign up failed", err, log.OpSignUp, nil)
		return core.User{}, err
	}

	stored, ok, err := r.users.FindUser(ctx, u.ID)
	if err != nil {
		return core.User{}, fmt.Errorf("confirm user %d: %w", u.ID, err)
	}
	if !ok {
		return core.User{}, fmt.Errorf("confirm user %d: %w", u.ID, core.ErrWriteNotConfirmed)
	}

	r.logger.InfoContext(ctx, "User signed up", log.FieldUserID, stored.ID, log.FieldOperation, log.OpSignUp)
	return stored, nil
}

func (r *Registry) insert(ctx context.Context, candidate core.User) (core.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.ids.Next(ctx, MaxIDFunc(r.users.MaxUserID))
	if err != nil {
		return core.User{}, err
	}
	u := core.User{ID: id, Username: candidate.Username, Password: candidate.Password}
	if err := r.users.InsertUser(ctx, u); err != nil {
		return core.User{}, fmt.Errorf("store user: %w", err)
	}
	return u, nil
}

// SignIn reports whether a user with exactly these credentials exists.
// Credentials that could never have been signed up simply do not match.
func (r *Registry) SignIn(ctx context.Context, creds core.Credentials) (bool, error) {
	u, ok, err := r.users.FindUserByCredentials(ctx, creds.Username, creds.Password)
	if err != nil {
		return false, fmt.Errorf("sign in: %w", err)
	}
	if ok {
		r.logger.InfoContext(ctx, "User signed in", log.FieldUserID, u.ID, log.FieldOperation, log.OpSignIn)
	} else {
		r.logger.WarnContext(ctx, "Sign in rejected", log.FieldOperation, log.OpSignIn)
	}
	return ok, nil
}

// UpdateProfile replaces username and password of user id.
func (r *Registry) UpdateProfile(ctx context.Context, id int64, candidate core.User) (core.User, error) {
	if err := candidate.Validate(); err != nil {
		return core.User{}, err
	}
	u := core.User{ID: id, Username: candidate.Username, Password: candidate.Password}
	n, err := r.users.UpdateUser(ctx, u)
	if err != nil {
		r.events.LogError(ctx, "Profile update failed", err, log.OpUpdate, log.NewFields().WithUser(id))
		return core.User{}, fmt.Errorf("update user %d: %w", id, err)
	}
	if n == 0 {
		return core.User{}, core.ErrUserNotFound
	}

	stored, ok, err := r.users.FindUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("confirm user %d: %w", id, err)
	}
	if !ok {
		return core.User{}, core.ErrWriteNotConfirmed
	}
	r.logger.InfoContext(ctx, "User profile updated", log.FieldUserID, id, log.FieldOperation, log.OpUpdate)
	return stored, nil
}

// Resolve looks a user up by id. A missing user is not an error.
func (r *Registry) Resolve(ctx context.Context, id int64) (core.User, bool, error) {
	u, ok, err := r.users.FindUser(ctx, id)
	if err != nil {
		return core.User{}, false, fmt.Errorf("resolve user %d: %w", id, err)
	}
	return u, ok, nil
}
