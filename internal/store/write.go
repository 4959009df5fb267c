package store

import (
	"context"
	"fmt"

	"github.com/roach88/factory/internal/ir"
)

// WriteLog appends invocations and their outcomes in a single transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting the same records
// is silently ignored. Each outcome must reference an invocation that is
// either already stored or part of the same call.
//
// The host calls WriteLog after the invocation's own transaction has
// committed or rolled back, so failed invocations are logged too.
func (s *Store) WriteLog(ctx context.Context, invs []ir.Invocation, outs []ir.Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write log: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, inv := range invs {
		msgJSON, err := marshalMsg(inv.Msg)
		if err != nil {
			return fmt.Errorf("write invocation %s: %w", inv.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO invocations
			(id, tx_token, seq, entry, contract, sender, msg, height, host_version, schema_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			inv.ID,
			inv.TxToken,
			inv.Seq,
			inv.Entry,
			inv.Contract,
			inv.Sender,
			msgJSON,
			inv.Height,
			inv.HostVersion,
			inv.SchemaVersion,
		)
		if err != nil {
			return fmt.Errorf("write invocation %s: %w", inv.ID, err)
		}
	}

	for _, out := range outs {
		attrsJSON, err := marshalAttributes(out.Attributes)
		if err != nil {
			return fmt.Errorf("write outcome %s: %w", out.InvocationID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO outcomes
			(invocation_id, ok, error, attributes, data)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(invocation_id) DO NOTHING
		`,
			out.InvocationID,
			out.Ok,
			out.Error,
			attrsJSON,
			out.Data,
		)
		if err != nil {
			return fmt.Errorf("write outcome %s: %w", out.InvocationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write log: commit: %w", err)
	}
	return nil
}
