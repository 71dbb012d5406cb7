package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "transport-request-system/pkg/errors"
)

type TxManagerInterface interface {
	RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// txBeginner - то, что умеет открыть транзакцию (пул, соединение).
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type TxManager struct {
	db txBeginner
}

func NewTxManager(pool *pgxpool.Pool) TxManagerInterface {
	return &TxManager{db: pool}
}

// RunInTransaction выполняет fn в одной транзакции: ошибка или паника в fn
// откатывает всё, иначе коммит. Ошибки fn возвращаются как есть,
// сбои begin/commit - как StorageError.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return apperrors.NewStorageError("начало транзакции", err)
	}

	defer func() {
		// откат должен пройти даже после отмены запроса
		rollbackCtx := context.WithoutCancel(ctx)
		if p := recover(); p != nil {
			_ = tx.Rollback(rollbackCtx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(rollbackCtx)
		} else if commitErr := tx.Commit(ctx); commitErr != nil {
			err = apperrors.NewStorageError("коммит транзакции", commitErr)
		}
	}()

	err = fn(tx)
	return err
}
