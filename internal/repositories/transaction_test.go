package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	apperrors "transport-request-system/pkg/errors"
)

// fakeTx переопределяет только Commit и Rollback, остальное не вызывается.
type fakeTx struct {
	pgx.Tx
	commitErr   error
	committed   bool
	rolledBack  bool
	rollbackErr error
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	t.rollbackErr = ctx.Err()
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (b *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestTxManager_Commit(t *testing.T) {
	tx := &fakeTx{}
	m := &TxManager{db: &fakeBeginner{tx: tx}}

	err := m.RunInTransaction(context.Background(), func(pgx.Tx) error { return nil })

	assert.NoError(t, err)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestTxManager_FnErrorReturnedAsIs(t *testing.T) {
	tx := &fakeTx{}
	m := &TxManager{db: &fakeBeginner{tx: tx}}

	err := m.RunInTransaction(context.Background(), func(pgx.Tx) error { return apperrors.ErrNotFound })

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	var storageErr *apperrors.StorageError
	assert.False(t, errors.As(err, &storageErr))
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestTxManager_BeginAndCommitFailuresAreStorageErrors(t *testing.T) {
	var storageErr *apperrors.StorageError

	m := &TxManager{db: &fakeBeginner{err: errors.New("соединение разорвано")}}
	err := m.RunInTransaction(context.Background(), func(pgx.Tx) error { return nil })
	assert.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "начало транзакции", storageErr.Op)

	m = &TxManager{db: &fakeBeginner{tx: &fakeTx{commitErr: errors.New("serialization failure")}}}
	err = m.RunInTransaction(context.Background(), func(pgx.Tx) error { return nil })
	assert.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "коммит транзакции", storageErr.Op)
}

func TestTxManager_RollbackSurvivesCanceledRequest(t *testing.T) {
	tx := &fakeTx{}
	m := &TxManager{db: &fakeBeginner{tx: tx}}
	ctx, cancel := context.WithCancel(context.Background())

	err := m.RunInTransaction(ctx, func(pgx.Tx) error {
		cancel()
		return context.Canceled
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, tx.rolledBack)
	assert.NoError(t, tx.rollbackErr, "откат идёт с неотменённым контекстом")
}

func TestTxManager_CanceledBeforeBegin(t *testing.T) {
	beginner := &fakeBeginner{err: errors.New("не должен вызываться")}
	m := &TxManager{db: beginner}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.RunInTransaction(ctx, func(pgx.Tx) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestTxManager_PanicRollsBack(t *testing.T) {
	tx := &fakeTx{}
	m := &TxManager{db: &fakeBeginner{tx: tx}}

	assert.Panics(t, func() {
		_ = m.RunInTransaction(context.Background(), func(pgx.Tx) error { panic("сбой") })
	})
	assert.True(t, tx.rolledBack)
}
