package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/store"
)

// ErrNotOperational is returned when the contract is paused or migrating.
var ErrNotOperational = errors.New("not operational")

// ErrInvalidLevel is returned for an unknown status level.
var ErrInvalidLevel = errors.New("invalid status level")

// Status levels.
const (
	LevelOperational = "operational"
	LevelPaused      = "paused"
	LevelMigrating   = "migrating"
)

// StatusStorage persists operational gate state.
// *store.Partition satisfies it.
type StatusStorage interface {
	LoadStatus(ctx context.Context) (store.StatusRecord, error)
	SaveStatus(ctx context.Context, rec store.StatusRecord) error
}

// Asserter checks whether a sender may administer the contract.
type Asserter interface {
	Assert(ctx context.Context, sender address.Canonical) error
}

// Operational is a global pause switch guarded by an access gate.
// A contract with no recorded status is operational.
type Operational struct {
	storage StatusStorage
	access  Asserter
}

// NewOperational creates an operational gate. Status changes are
// authorized through access.
func NewOperational(storage StatusStorage, access Asserter) *Operational {
	return &Operational{storage: storage, access: access}
}

// AssertOperational returns ErrNotOperational unless the level is operational.
func (o *Operational) AssertOperational(ctx context.Context) error {
	rec, err := o.Status(ctx)
	if err != nil {
		return err
	}
	if rec.Level != LevelOperational {
		if rec.Reason != "" {
			return fmt.Errorf("%s (%s): %w", rec.Level, rec.Reason, ErrNotOperational)
		}
		return fmt.Errorf("%s: %w", rec.Level, ErrNotOperational)
	}
	return nil
}

// SetStatus changes the level. Only the admin may call it, and it is never
// itself blocked by the current level.
func (o *Operational) SetStatus(ctx context.Context, sender address.Canonical, rec store.StatusRecord) error {
	if err := o.access.Assert(ctx, sender); err != nil {
		return err
	}
	switch rec.Level {
	case LevelOperational, LevelPaused, LevelMigrating:
	default:
		return fmt.Errorf("%q: %w", rec.Level, ErrInvalidLevel)
	}
	if rec.Level != LevelMigrating {
		rec.NewAddress = ""
	}
	return o.storage.SaveStatus(ctx, rec)
}

// Status returns the current level, defaulting to operational.
func (o *Operational) Status(ctx context.Context) (store.StatusRecord, error) {
	rec, err := o.storage.LoadStatus(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return store.StatusRecord{Level: LevelOperational}, nil
	}
	if err != nil {
		return store.StatusRecord{}, err
	}
	return rec, nil
}
