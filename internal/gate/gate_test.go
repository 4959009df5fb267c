package gate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/store"
)

var (
	alice = address.Canonical("alice-canonical-0001")
	bob   = address.Canonical("bob-canonical-000002")
	eve   = address.Canonical("eve-canonical-000003")
)

// withPartition runs fn against a fresh contract partition inside one transaction.
func withPartition(t *testing.T, fn func(ctx context.Context, p *store.Partition)) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "gate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	err = s.Atomic(ctx, func(tx *store.Tx) error {
		fn(ctx, tx.Partition(address.Canonical("factory-contract-001")))
		return nil
	})
	require.NoError(t, err)
}

func TestAccess_AssertBeforeInit(t *testing.T) {
	withPartition(t, func(ctx context.Context, p *store.Partition) {
		err := NewAccess(p).Assert(ctx, alice)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestAccess_InitAndAssert(t *testing.T) {
	withPartition(t, func(ctx context.Context, p *store.Partition) {
		access := NewAccess(p)
		require.NoError(t, access.Init(ctx, alice))

		assert.NoError(t, access.Assert(ctx, alice))
		assert.ErrorIs(t, access.Assert(ctx, eve), ErrUnauthorized)
	})
}

func TestAccess_InitRejectsEmpty(t *testing.T) {
	withPartition(t, func(ctx context.Context, p *store.Partition) {
		err := NewAccess(p).Init(ctx, nil)
		assert.ErrorIs(t, err, address.ErrInvalidAddress)
	})
}

func TestAccess_TwoStepTransfer(t *testing.T) {
	withPartition(t, func(ctx context.Context, p *store.Partition) {
		access := NewAccess(p)
		require.NoError(t, access.Init(ctx, alice))

		assert.ErrorIs(t, access.ChangeAdmin(ctx, eve, eve), ErrUnauthorized, "only admin nominates")
		require.NoError(t, access.ChangeAdmin(ctx, alice, bob))

		rec, err := access.Admin(ctx)
		require.NoError(t, err)
		assert.Equal(t, alice, rec.Admin)
		assert.Equal(t, bob, rec.Pending)

		// Nomination alone does not transfer control.
		assert.NoError(t, access.Assert(ctx, alice))
		assert.ErrorIs(t, access.Assert(ctx, bob), ErrUnauthorized)

		assert.ErrorIs(t, access.AcceptAdmin(ctx, eve), ErrUnauthorized, "only nominee accepts")
		require.NoError(t, access.AcceptAdmin(ctx, bob))

		assert.NoError(t, access.Assert(ctx, bob))
		assert.ErrorIs(t, access.Assert(ctx, alice), ErrUnauthorized)

		rec, err = access.Admin(ctx)
		require.NoError(t, err)
		assert.Empty(t, rec.Pending)
	})
}

func TestAccess_AcceptWithoutNomination(t *testing.T) {
	withPartition(t, func(ctx context.Context, p *store.Partition) {
		access := NewAccess(p)
		require.NoError(t, access.Init(ctx, alice))
		assert.ErrorIs(t, access.AcceptAdmin(ctx, alice), ErrUnauthorized)
	})
}

func TestOperational_DefaultsToOperational(t *testing.T) {
	withPartition(t, func(ctx context.Context, p *store.Partition) {
		op := NewOperational(p, NewAccess(p))
		assert.NoError(t, op.AssertOperational(ctx))

		rec, err := op.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, LevelOperational, rec.Level)
	})
}

func TestOperational_PauseAndResume(t *testing.T) {
	withPartition(t, func(ctx context.Context, p *store.Partition) {
		access := NewAccess(p)
		require.NoError(t, access.Init(ctx, alice))
		op := NewOperational(p, access)

		require.NoError(t, op.SetStatus(ctx, alice, store.StatusRecord{Level: LevelPaused, Reason: "upgrade"}))
		err := op.AssertOperational(ctx)
		assert.ErrorIs(t, err, ErrNotOperational)
		assert.Contains(t, err.Error(), "upgrade")

		// Status changes are never blocked by the current level.
		require.NoError(t, op.SetStatus(ctx, alice, store.StatusRecord{Level: LevelOperational}))
		assert.NoError(t, op.AssertOperational(ctx))
	})
}

func TestOperational_SetStatusRequiresAdmin(t *testing.T) {
	withPartition(t, func(ctx context.Context, p *store.Partition) {
		access := NewAccess(p)
		require.NoError(t, access.Init(ctx, alice))
		op := NewOperational(p, access)

		err := op.SetStatus(ctx, eve, store.StatusRecord{Level: LevelPaused})
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.NoError(t, op.AssertOperational(ctx))
	})
}

func TestOperational_SetStatusValidatesLevel(t *testing.T) {
	withPartition(t, func(ctx context.Context, p *store.Partition) {
		access := NewAccess(p)
		require.NoError(t, access.Init(ctx, alice))
		op := NewOperational(p, access)

		err := op.SetStatus(ctx, alice, store.StatusRecord{Level: "sleeping"})
		assert.ErrorIs(t, err, ErrInvalidLevel)
	})
}

func TestOperational_NewAddressOnlyWhenMigrating(t *testing.T) {
	withPartition(t, func(ctx context.Context, p *store.Partition) {
		access := NewAccess(p)
		require.NoError(t, access.Init(ctx, alice))
		op := NewOperational(p, access)

		require.NoError(t, op.SetStatus(ctx, alice, store.StatusRecord{Level: LevelPaused, NewAddress: "fx1ignored"}))
		rec, err := op.Status(ctx)
		require.NoError(t, err)
		assert.Empty(t, rec.NewAddress)

		require.NoError(t, op.SetStatus(ctx, alice, store.StatusRecord{Level: LevelMigrating, NewAddress: "fx1next"}))
		rec, err = op.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, "fx1next", rec.NewAddress)
		assert.ErrorIs(t, op.AssertOperational(ctx), ErrNotOperational)
	})
}
