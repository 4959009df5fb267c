package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/factory/internal/ir"
)

// LogEntry pairs a logged invocation with its outcome. Outcome is nil only
// if the log was written without one.
type LogEntry struct {
	Invocation ir.Invocation
	Outcome    *ir.Outcome
}

const selectLogEntries = `
	SELECT i.id, i.tx_token, i.seq, i.entry, i.contract, i.sender, i.msg, i.height,
	       i.host_version, i.schema_version,
	       o.invocation_id, o.ok, o.error, o.attributes, o.data
	FROM invocations i
	LEFT JOIN outcomes o ON o.invocation_id = i.id
`

// ReadTx returns every logged invocation for one transaction token.
// Results are ordered deterministically: ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if the token is unknown.
func (s *Store) ReadTx(ctx context.Context, txToken string) ([]LogEntry, error) {
	return s.queryLog(ctx, selectLogEntries+`
		WHERE i.tx_token = ?
		ORDER BY i.seq ASC, i.id COLLATE BINARY ASC
	`, txToken)
}

// ReadLog returns the whole invocation log in sequence order.
func (s *Store) ReadLog(ctx context.Context) ([]LogEntry, error) {
	return s.queryLog(ctx, selectLogEntries+`
		ORDER BY i.seq ASC, i.id COLLATE BINARY ASC
	`)
}

// ReadInvocation returns a single logged invocation by ID.
// Returns ErrNotFound if absent.
func (s *Store) ReadInvocation(ctx context.Context, id string) (LogEntry, error) {
	entries, err := s.queryLog(ctx, selectLogEntries+`WHERE i.id = ?`, id)
	if err != nil {
		return LogEntry{}, err
	}
	if len(entries) == 0 {
		return LogEntry{}, fmt.Errorf("invocation %s: %w", id, ErrNotFound)
	}
	return entries[0], nil
}

// TxTokens returns every transaction token in the order it first appeared.
func (s *Store) TxTokens(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tx_token FROM invocations
		GROUP BY tx_token
		ORDER BY MIN(seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tx tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan tx token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tx tokens: %w", err)
	}
	return tokens, nil
}

// MaxSeq returns the highest logged sequence number, or 0 for an empty log.
// The host resumes its logical clock from this value after a restart.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM invocations`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) queryLog(ctx context.Context, query string, args ...any) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return entries, nil
}

func scanLogEntry(rows *sql.Rows) (LogEntry, error) {
	var (
		inv      ir.Invocation
		msg      string
		outID    sql.NullString
		outOk    sql.NullBool
		outErr   sql.NullString
		outAttrs sql.NullString
		outData  []byte
	)

	err := rows.Scan(
		&inv.ID, &inv.TxToken, &inv.Seq, &inv.Entry, &inv.Contract, &inv.Sender, &msg, &inv.Height,
		&inv.HostVersion, &inv.SchemaVersion,
		&outID, &outOk, &outErr, &outAttrs, &outData,
	)
	if err != nil {
		return LogEntry{}, fmt.Errorf("scan log entry: %w", err)
	}
	inv.Msg = json.RawMessage(msg)

	entry := LogEntry{Invocation: inv}
	if !outID.Valid {
		return entry, nil
	}

	attrs, err := unmarshalAttributes(outAttrs.String)
	if err != nil {
		return LogEntry{}, fmt.Errorf("scan log entry %s: %w", inv.ID, err)
	}
	entry.Outcome = &ir.Outcome{
		InvocationID: outID.String,
		Ok:           outOk.Bool,
		Error:        outErr.String,
		Attributes:   attrs,
		Data:         outData,
	}
	return entry, nil
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
