package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/store"
)

// ErrUnauthorized is returned when the sender is not allowed to perform an
// administrative action.
var ErrUnauthorized = errors.New("unauthorized")

// AdminStorage persists access gate state.
// *store.Partition satisfies it.
type AdminStorage interface {
	LoadAdmin(ctx context.Context) (store.AdminRecord, error)
	SaveAdmin(ctx context.Context, rec store.AdminRecord) error
}

// Access is an admin gate with two-step ownership transfer: the current
// admin nominates a successor, and the nominee must accept before control
// changes hands.
type Access struct {
	storage AdminStorage
}

// NewAccess creates an access gate backed by storage.
func NewAccess(storage AdminStorage) *Access {
	return &Access{storage: storage}
}

// Init sets the initial admin. Called once from the owning contract's
// instantiate entry point.
func (a *Access) Init(ctx context.Context, admin address.Canonical) error {
	if len(admin) == 0 {
		return fmt.Errorf("init admin: %w", address.ErrInvalidAddress)
	}
	return a.storage.SaveAdmin(ctx, store.AdminRecord{Admin: admin})
}

// Assert returns ErrUnauthorized unless sender is the current admin.
func (a *Access) Assert(ctx context.Context, sender address.Canonical) error {
	rec, err := a.storage.LoadAdmin(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no admin set: %w", ErrUnauthorized)
	}
	if err != nil {
		return err
	}
	if !rec.Admin.Equal(sender) {
		return ErrUnauthorized
	}
	return nil
}

// ChangeAdmin nominates a new admin. Only the current admin may nominate;
// the nomination replaces any earlier pending one.
func (a *Access) ChangeAdmin(ctx context.Context, sender, nominee address.Canonical) error {
	if err := a.Assert(ctx, sender); err != nil {
		return err
	}
	rec, err := a.storage.LoadAdmin(ctx)
	if err != nil {
		return err
	}
	rec.Pending = nominee
	return a.storage.SaveAdmin(ctx, rec)
}

// AcceptAdmin completes a transfer. Only the pending nominee may accept.
func (a *Access) AcceptAdmin(ctx context.Context, sender address.Canonical) error {
	rec, err := a.storage.LoadAdmin(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no admin set: %w", ErrUnauthorized)
	}
	if err != nil {
		return err
	}
	if len(rec.Pending) == 0 || !rec.Pending.Equal(sender) {
		return ErrUnauthorized
	}
	return a.storage.SaveAdmin(ctx, store.AdminRecord{Admin: sender})
}

// Admin returns the current admin and pending nominee.
func (a *Access) Admin(ctx context.Context) (store.AdminRecord, error) {
	rec, err := a.storage.LoadAdmin(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return store.AdminRecord{}, nil
	}
	return rec, err
}
