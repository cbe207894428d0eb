package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store/memory"
)

func newRegistry(t *testing.T) (*Registry, *memory.Store) {
	t.Helper()
	s := memory.New()
	return NewRegistry(s, log.Discard()), s
}

func TestAllocator(t *testing.T) {
	a := NewAllocator()
	empty := MaxIDFunc(func(context.Context) (int64, bool, error) { return 0, false, nil })
	id, err := a.Next(context.Background(), empty)
	require.NoError(t, err)
	assert.Equal(t, BaselineID, id)

	seven := MaxIDFunc(func(context.Context) (int64, bool, error) { return 7, true, nil })
	id, err = a.Next(context.Background(), seven)
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)

	broken := MaxIDFunc(func(context.Context) (int64, bool, error) { return 0, false, errors.New("disk") })
	_, err = a.Next(context.Background(), broken)
	assert.Error(t, err)
}

func TestSignUpThenResolve(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t)

	u, err := r.SignUp(ctx, core.User{ID: 99, Username: "Noam", Password: "Mv1813243"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID, "candidate id is ignored")

	got, ok, err := r.Resolve(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u, got)

	second, err := r.SignUp(ctx, core.User{Username: "Miri", Password: "yjuhtgfe34"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)

	_, ok, err = r.Resolve(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignUpRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	r, s := newRegistry(t)

	_, err := r.SignUp(ctx, core.User{Username: "abc123", Password: "Mv1813243"})
	require.True(t, core.IsValidationError(err))
	_, err = r.SignUp(ctx, core.User{Username: "abc", Password: "short"})
	require.True(t, core.IsValidationError(err))

	_, ok, _ := s.MaxUserID(ctx)
	assert.False(t, ok, "nothing stored")
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t)
	_, err := r.SignUp(ctx, core.User{Username: "Noam", Password: "Mv1813243"})
	require.NoError(t, err)

	ok, err := r.SignIn(ctx, core.Credentials{Username: "Noam", Password: "Mv1813243"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.SignIn(ctx, core.Credentials{Username: "Noam", Password: "Mv1813244"})
	require.NoError(t, err)
	assert.False(t, ok)

	for _, creds := range []core.Credentials{
		{Username: "abc123", Password: "whatever1"},
		{Username: "Noam", Password: "has space"},
		{},
	} {
		ok, err = r.SignIn(ctx, creds)
		require.NoError(t, err, "%+v", creds)
		assert.False(t, ok, "%+v", creds)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t)
	u, err := r.SignUp(ctx, core.User{Username: "Noam", Password: "Mv1813243"})
	require.NoError(t, err)

	updated, err := r.UpdateProfile(ctx, u.ID, core.User{Username: "Noa", Password: "another12"})
	require.NoError(t, err)
	assert.Equal(t, core.User{ID: u.ID, Username: "Noa", Password: "another12"}, updated)

	_, err = r.UpdateProfile(ctx, 77, core.User{Username: "Noa", Password: "another12"})
	assert.ErrorIs(t, err, core.ErrUserNotFound)

	_, err = r.UpdateProfile(ctx, u.ID, core.User{Username: "", Password: "another12"})
	assert.True(t, core.IsValidationError(err))
}
