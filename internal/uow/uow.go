package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/hallbook/internal/repository"
	postgres "github.com/kirinyoku/hallbook/internal/repository/postgres"
)

// UoW represents a unit of work over the postgres store.
type UoW struct {
	store *postgres.Store
}

var _ repository.UnitOfWork = (*UoW)(nil)

func NewUoW(store *postgres.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, repos repository.Repos, after func(repository.AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts runs fn inside the transaction with the given options. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, repos repository.Repos, after func(repository.AfterCommit)) error,
) error {
	var hooks []repository.AfterCommit

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
		hooks = hooks[:0]
		return fn(ctx, txRepos{store: u.store, tx: tx}, func(h repository.AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

type txRepos struct {
	store *postgres.Store
	tx    postgres.DB
}

func (r txRepos) Bookings() repository.BookingRepository {
	return r.store.Bookings().With(r.tx)
}

func (r txRepos) Occurrences() repository.OccurrenceRepository {
	return r.store.Occurrences().With(r.tx)
}

func (r txRepos) Catalog() repository.CatalogRepository {
	return r.store.Catalog().With(r.tx)
}
