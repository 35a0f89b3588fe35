package repo

import (
	"context"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"outreach/config"
)

type txKey struct{}

type TxService interface {
	RunTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BaseRepo owns the shared gorm handle. Typed repos embed it for the
// tx-in-context plumbing: a repo call inside RunTx joins the transaction,
// outside it runs on the root handle.
type BaseRepo interface {
	TxService

	DB(ctx context.Context) *gorm.DB
	Close(ctx context.Context) error
}

type baseRepo struct {
	db *gorm.DB
}

// NewBaseRepo opens the metadata DB. TranslateError maps driver duplicate-key
// errors to gorm.ErrDuplicatedKey, which the enrollment and step execution
// repos rely on for their idempotency guarantees.
func NewBaseRepo(_ context.Context, mysqlCfg config.MySQL) (BaseRepo, error) {
	db, err := gorm.Open(mysql.Open(mysqlCfg.ToDSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	return &baseRepo{
		db: db,
	}, nil
}

func NewBaseRepoWithDB(db *gorm.DB) BaseRepo {
	return &baseRepo{
		db: db,
	}
}

func (r *baseRepo) RunTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.hasTx(ctx) {
		return fn(ctx)
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		ctxWithTx := context.WithValue(ctx, txKey{}, tx)
		if err := fn(ctxWithTx); err != nil {
			return err
		}
		return nil
	})
}

func (r *baseRepo) DB(ctx context.Context) *gorm.DB {
	db, ok := ctx.Value(txKey{}).(*gorm.DB)
	if !ok {
		db = r.db
	}
	return db
}

func (r *baseRepo) Close(_ context.Context) error {
	if r.db != nil {
		sqlDB, err := r.db.DB()
		if err != nil {
			return err
		}

		err = sqlDB.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *baseRepo) hasTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}
