package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/store"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteUsers(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	_, ok, err := repo.MaxUserID(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty table has no max id")

	require.NoError(t, repo.InsertUser(ctx, core.User{ID: 1, Username: "Noam", Password: "Mv1813243"}))
	err = repo.InsertUser(ctx, core.User{ID: 1, Username: "Other", Password: "Mv1813243"})
	assert.ErrorIs(t, err, core.ErrConflict)

	u, ok, err := repo.FindUser(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Noam", u.Username)

	_, ok, err = repo.FindUser(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = repo.FindUserByCredentials(ctx, "Noam", "Mv1813243")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := repo.UpdateUser(ctx, core.User{ID: 1, Username: "Noa", Password: "changed123"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.UpdateUser(ctx, core.User{ID: 7, Username: "Noa", Password: "changed123"})
	require.NoError(t, err)
	assert.Zero(t, n)

	hi, ok, err := repo.MaxUserID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), hi)
}

func TestSQLiteOperationRangeIsInclusiveAtMidnight(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	at := func(m time.Month, d, h, min int) time.Time {
		return time.Date(2024, m, d, h, min, 0, 0, time.UTC)
	}
	ops := []core.Operation{
		{ID: 1, Sum: 100, UserID: 1, Type: core.Expense, Date: at(time.March, 1, 0, 0)},
		{ID: 2, Sum: 50, UserID: 1, Type: core.Expense, Date: at(time.March, 31, 0, 0)},
		{ID: 3, Sum: 300, UserID: 1, Type: core.Revenue, Date: at(time.March, 31, 23, 59)},
		{ID: 4, Sum: 10, UserID: 1, Type: core.Expense, Date: at(time.April, 1, 0, 0)},
		{ID: 5, Sum: 10, UserID: 2, Type: core.Expense, Date: at(time.March, 10, 0, 0)},
	}
	for _, op := range ops {
		require.NoError(t, repo.InsertOperation(ctx, op))
	}

	got, err := repo.FindOperations(ctx, store.OperationFilter{
		UserID: 1,
		From:   at(time.March, 1, 0, 0),
		To:     at(time.March, 31, 0, 0),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
	assert.True(t, got[1].Date.Equal(ops[1].Date))
	assert.Equal(t, core.Expense, got[1].Type)

	all, err := repo.FindOperations(ctx, store.OperationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestSQLiteOperationDatesRoundTripAcrossYears(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	dates := []time.Time{
		time.Date(1, time.January, 2, 0, 0, 0, 0, time.UTC),
		time.Date(1500, time.March, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 31, 23, 59, 0, 123456789, time.UTC),
		time.Date(2300, time.March, 10, 0, 0, 0, 0, time.UTC),
		time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC),
	}
	for i, d := range dates {
		require.NoError(t, repo.InsertOperation(ctx, core.Operation{ID: int64(i + 1), Sum: 1, UserID: 1, Type: core.Expense, Date: d}))
	}
	for i, d := range dates {
		op, ok, err := repo.FindOperation(ctx, int64(i+1))
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, op.Date.Equal(d), "stored %s read back %s", d, op.Date)
	}

	local := time.FixedZone("UTC+2", 2*60*60)
	n, err := repo.UpdateOperation(ctx, core.Operation{ID: 4, Sum: 1, UserID: 1, Type: core.Expense, Date: time.Date(2300, time.March, 10, 2, 0, 0, 0, local)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	op, _, err := repo.FindOperation(ctx, 4)
	require.NoError(t, err)
	assert.True(t, op.Date.Equal(dates[3]), "offsets are normalized to UTC")

	got, err := repo.FindOperations(ctx, store.OperationFilter{
		UserID: 1,
		From:   time.Date(1000, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2300, time.March, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	ids := make([]int64, len(got))
	for i, op := range got {
		ids[i] = op.ID
	}
	assert.Equal(t, []int64{2, 3, 4}, ids)
}

func TestSQLiteOperationUpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	date := time.Date(2024, time.May, 2, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.InsertOperation(ctx, core.Operation{ID: 1, Sum: 5, UserID: 1, Type: core.Expense, Date: date}))
	assert.ErrorIs(t, repo.InsertOperation(ctx, core.Operation{ID: 1, Sum: 5, UserID: 1, Type: core.Expense, Date: date}), core.ErrConflict)

	n, err := repo.UpdateOperation(ctx, core.Operation{ID: 1, Sum: 7.5, UserID: 1, Type: core.Revenue, Date: date})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	op, ok, err := repo.FindOperation(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7.5, op.Sum)
	assert.Equal(t, core.Revenue, op.Type)

	n, err = repo.DeleteOperation(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.UpdateOperation(ctx, core.Operation{ID: 1, Sum: 1, UserID: 1, Type: core.Revenue, Date: date})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, ok, err = repo.FindOperation(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.InsertUser(ctx, core.User{ID: 3, Username: "Miri", Password: "yjuhtgfe34"}))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err, "migrations are idempotent")
	defer repo.Close()

	var mode string
	require.NoError(t, repo.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
	require.NoError(t, repo.Ping(ctx), "migrations leave the shared handle open")
	hi, ok, err := repo.MaxUserID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), hi)
}
