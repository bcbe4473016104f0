package mocks

import (
	"context"

	"gymkapp-server/internal/repository"
)

// Transactor invokes the callback directly with a nil DBTX, so service tests
// exercise the transactional code path without a database. Set Err to make
// the transaction itself fail.
type Transactor struct {
	Err error
}

func (t *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.DBTX) error) error {
	if t.Err != nil {
		return t.Err
	}
	return fn(ctx, nil)
}
