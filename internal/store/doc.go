// Package store provides SQLite-backed durable storage for the host and the
// programs it runs.
//
// The store holds:
//   - Chain state: block height, code uploads, contract instances, balances
//   - Program partitions: per-contract tables namespaced by contract address
//     (factory template slot, factory instance registry, gate admin/status)
//   - Invocation log: append-only record of every entry-point call and its outcome
//
// # Critical Patterns
//
// Atomic invocations
//   - Store.Atomic runs one invocation in one transaction; any error rolls
//     back every write the invocation made
//   - Tx.WithSavepoint scopes a submessage so its failure undoes only its writes
//
// Insert-only registry
//   - UNIQUE(contract, address) on factory_instances
//   - InsertInstance reports ErrDuplicateKey instead of overwriting
//
// Deterministic ordering
//   - Registry listings and log reads use ORDER BY seq ASC, never timestamps
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
