package repository

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey struct{}

// TransactionManager runs a unit of work in one database transaction. Repositories
// called with the context passed to fn join that transaction through GetDB.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

// RunInTx reuses an enclosing transaction when ctx already carries one.
func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// InTx reports whether ctx carries an open transaction.
func InTx(ctx context.Context) bool {
	return txFrom(ctx) != nil
}

// GetDB returns the session repositories should query with: the transaction bound to
// ctx by RunInTx, or rootDB when there is none.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx := txFrom(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

func txFrom(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txContextKey{}).(*gorm.DB)
	return tx
}
