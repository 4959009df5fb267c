// Package ir holds the shared message and record types exchanged between the
// host, the factory program and its children, plus the canonical JSON and
// hashing helpers used for content-addressed identifiers.
//
// ir imports nothing internal. Every other package may depend on it.
//
// Key constraints:
//   - All JSON tags use snake_case
//   - Enum-like messages encode as single-key objects ({"create_instance": {...}})
//   - Canonical JSON never contains floats, so hashes are stable across replays
package ir
