// Package gate implements the two capability checks a factory consults
// before acting: an access gate (who may administer the contract) and an
// operational gate (whether the contract currently accepts work).
//
// Both gates keep their state in the owning contract's storage partition,
// so each factory instance has its own admin and status.
package gate
