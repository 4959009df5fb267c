package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// readHeight reads the committed block height outside any transaction.
func readHeight(t *testing.T, s *Store) uint64 {
	t.Helper()
	var h uint64
	if err := s.db.QueryRow("SELECT height FROM chain WHERE id = 1").Scan(&h); err != nil {
		t.Fatalf("read height: %v", err)
	}
	return h
}

// inTx runs fn in a committed transaction and fails the test on error.
func inTx(t *testing.T, s *Store, fn func(ctx context.Context, tx *Tx) error) {
	t.Helper()
	ctx := context.Background()
	if err := s.Atomic(ctx, func(tx *Tx) error { return fn(ctx, tx) }); err != nil {
		t.Fatalf("Atomic() failed: %v", err)
	}
}

// testAddr returns a deterministic 20-byte canonical address.
func testAddr(b byte) address.Canonical {
	addr := make(address.Canonical, ir.AddressLength)
	for i := range addr {
		addr[i] = b
	}
	return addr
}

// createTestInvocation creates a test invocation with minimal required fields.
func createTestInvocation(id, txToken, entry string, seq int64) ir.Invocation {
	return ir.Invocation{
		ID:            id,
		TxToken:       txToken,
		Seq:           seq,
		Entry:         entry,
		Contract:      "fx1contract",
		Sender:        "fx1sender",
		Msg:           json.RawMessage(`{"b":1,"a":2}`),
		Height:        1,
		HostVersion:   ir.HostVersion,
		SchemaVersion: ir.SchemaVersion,
	}
}
