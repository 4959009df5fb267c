package factory

//go:generate mockgen -source=gates.go -destination=mocks/mocks.go -package=mocks AccessGate,OperationalGate

import (
	"context"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/gate"
	"github.com/roach88/factory/internal/store"
)

// AccessGate decides who may administer a factory.
type AccessGate interface {
	Init(ctx context.Context, admin address.Canonical) error
	Assert(ctx context.Context, sender address.Canonical) error
	ChangeAdmin(ctx context.Context, sender, nominee address.Canonical) error
	AcceptAdmin(ctx context.Context, sender address.Canonical) error
	Admin(ctx context.Context) (store.AdminRecord, error)
}

// OperationalGate decides whether a factory currently accepts creations.
type OperationalGate interface {
	AssertOperational(ctx context.Context) error
	SetStatus(ctx context.Context, sender address.Canonical, rec store.StatusRecord) error
	Status(ctx context.Context) (store.StatusRecord, error)
}

// GateFactory binds gates to one factory's storage partition.
type GateFactory func(storage *store.Partition) (AccessGate, OperationalGate)

// DefaultGates keeps admin and status in the factory's own partition.
func DefaultGates(storage *store.Partition) (AccessGate, OperationalGate) {
	access := gate.NewAccess(storage)
	return access, gate.NewOperational(storage, access)
}
