// Package host runs programs transactionally against the store.
//
// The host owns a single-writer loop (Run). Callers submit work through
// Upload, Instantiate, Execute and Fund; each call becomes one job, and each
// job runs inside exactly one store transaction:
//
//   - Every entry-point call of the job shares that transaction
//   - An error from the top-level call rolls the whole job back
//   - Each submessage runs inside its own SAVEPOINT, so a failed spawn
//     undoes only the child's writes
//   - Replies are delivered to the emitting program inside the same
//     transaction, before the job's result is returned
//
// Because jobs never overlap, a program may reuse one reply ID for every
// submessage it emits.
//
// Every invocation is appended to the invocation log after the job's
// transaction commits or rolls back, so failed jobs are traceable too.
// Queries bypass the loop and run in a read-only transaction.
package host
