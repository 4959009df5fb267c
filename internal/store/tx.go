package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/factory/internal/address"
)

// Tx is an open store transaction. It is not safe for concurrent use; the
// host drives one Tx at a time from its single writer loop.
type Tx struct {
	tx         *sql.Tx
	savepoints int
}

// WithSavepoint runs fn inside a nested SAVEPOINT. If fn fails, only the
// writes made since the savepoint are undone and the enclosing transaction
// stays usable. fn's error is returned unchanged.
func (t *Tx) WithSavepoint(ctx context.Context, fn func() error) error {
	t.savepoints++
	name := fmt.Sprintf("sp_%d", t.savepoints)

	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}

	if fnErr := fn(); fnErr != nil {
		if _, err := t.tx.ExecContext(ctx, "ROLLBACK TO "+name); err != nil {
			return fmt.Errorf("rollback to %s: %w (after: %v)", name, err, fnErr)
		}
		if _, err := t.tx.ExecContext(ctx, "RELEASE "+name); err != nil {
			return fmt.Errorf("release %s: %w (after: %v)", name, err, fnErr)
		}
		return fnErr
	}

	if _, err := t.tx.ExecContext(ctx, "RELEASE "+name); err != nil {
		return fmt.Errorf("release %s: %w", name, err)
	}
	return nil
}

// Partition returns the storage namespace owned by one contract.
func (t *Tx) Partition(contract address.Canonical) *Partition {
	return &Partition{tx: t.tx, contract: []byte(contract)}
}
