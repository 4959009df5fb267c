package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/ir"
)

// Partition is the slice of storage owned by a single contract. Every row it
// reads or writes is keyed by the contract's canonical address, so two
// factories on the same host never see each other's template or registry.
type Partition struct {
	tx       *sql.Tx
	contract []byte
}

// Contract returns the canonical address that owns this partition.
func (p *Partition) Contract() address.Canonical {
	return address.Canonical(p.contract)
}

// InstanceRecord is one registered child as stored.
type InstanceRecord struct {
	Seq      int64
	Address  address.Canonical
	CodeHash string
	Extra    []byte
}

// AdminRecord holds the access gate's state.
type AdminRecord struct {
	Admin   address.Canonical
	Pending address.Canonical
}

// StatusRecord holds the operational gate's state.
type StatusRecord struct {
	Level      string
	Reason     string
	NewAddress string
}

// SaveTemplate writes the template slot, replacing any previous value.
func (p *Partition) SaveTemplate(ctx context.Context, code ir.ContractCode) error {
	_, err := p.tx.ExecContext(ctx, `
		INSERT INTO factory_template (contract, code_id, code_hash)
		VALUES (?, ?, ?)
		ON CONFLICT(contract) DO UPDATE SET code_id = excluded.code_id, code_hash = excluded.code_hash
	`, p.contract, code.ID, code.CodeHash)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

// LoadTemplate reads the template slot.
// Returns ErrNotConfigured if it was never written.
func (p *Partition) LoadTemplate(ctx context.Context) (ir.ContractCode, error) {
	var code ir.ContractCode
	err := p.tx.QueryRowContext(ctx, `
		SELECT code_id, code_hash FROM factory_template WHERE contract = ?
	`, p.contract).Scan(&code.ID, &code.CodeHash)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ContractCode{}, ErrNotConfigured
	}
	if err != nil {
		return ir.ContractCode{}, fmt.Errorf("load template: %w", err)
	}
	return code, nil
}

// InsertInstance appends a child to the registry.
// Returns ErrDuplicateKey if the address is already registered; the
// existing record is left untouched.
func (p *Partition) InsertInstance(ctx context.Context, rec InstanceRecord) error {
	extra := rec.Extra
	if extra == nil {
		extra = []byte("null")
	}

	result, err := p.tx.ExecContext(ctx, `
		INSERT INTO factory_instances (contract, address, code_hash, extra)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(contract, address) DO NOTHING
	`, p.contract, []byte(rec.Address), rec.CodeHash, string(extra))
	if err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert instance: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("insert instance %s: %w", rec.Address, ErrDuplicateKey)
	}
	return nil
}

// GetInstance looks up a registered child by canonical address.
// Returns nil, nil when the address is not registered.
func (p *Partition) GetInstance(ctx context.Context, addr address.Canonical) (*InstanceRecord, error) {
	row := p.tx.QueryRowContext(ctx, `
		SELECT seq, address, code_hash, extra
		FROM factory_instances
		WHERE contract = ? AND address = ?
	`, p.contract, []byte(addr))

	rec, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return &rec, nil
}

// CountInstances returns the number of registered children.
func (p *Partition) CountInstances(ctx context.Context) (uint64, error) {
	var n uint64
	err := p.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM factory_instances WHERE contract = ?
	`, p.contract).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count instances: %w", err)
	}
	return n, nil
}

// ListInstances returns up to limit children in registration order,
// skipping the first start. Returns an empty slice (not nil) past the end.
func (p *Partition) ListInstances(ctx context.Context, start uint64, limit uint8) ([]InstanceRecord, error) {
	rows, err := p.tx.QueryContext(ctx, `
		SELECT seq, address, code_hash, extra
		FROM factory_instances
		WHERE contract = ?
		ORDER BY seq ASC
		LIMIT ? OFFSET ?
	`, p.contract, int64(limit), start)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	records := []InstanceRecord{}
	for rows.Next() {
		rec, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("list instances: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instances: %w", err)
	}
	return records, nil
}

// SaveAdmin writes the access gate state.
func (p *Partition) SaveAdmin(ctx context.Context, rec AdminRecord) error {
	var pending any
	if len(rec.Pending) > 0 {
		pending = []byte(rec.Pending)
	}

	_, err := p.tx.ExecContext(ctx, `
		INSERT INTO gate_admin (contract, admin, pending)
		VALUES (?, ?, ?)
		ON CONFLICT(contract) DO UPDATE SET admin = excluded.admin, pending = excluded.pending
	`, p.contract, []byte(rec.Admin), pending)
	if err != nil {
		return fmt.Errorf("save admin: %w", err)
	}
	return nil
}

// LoadAdmin reads the access gate state. Returns ErrNotFound if unset.
func (p *Partition) LoadAdmin(ctx context.Context) (AdminRecord, error) {
	var admin, pending []byte
	err := p.tx.QueryRowContext(ctx, `
		SELECT admin, pending FROM gate_admin WHERE contract = ?
	`, p.contract).Scan(&admin, &pending)
	if errors.Is(err, sql.ErrNoRows) {
		return AdminRecord{}, ErrNotFound
	}
	if err != nil {
		return AdminRecord{}, fmt.Errorf("load admin: %w", err)
	}
	return AdminRecord{Admin: admin, Pending: pending}, nil
}

// SaveStatus writes the operational gate state.
func (p *Partition) SaveStatus(ctx context.Context, rec StatusRecord) error {
	_, err := p.tx.ExecContext(ctx, `
		INSERT INTO gate_status (contract, level, reason, new_address)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(contract) DO UPDATE SET
			level = excluded.level,
			reason = excluded.reason,
			new_address = excluded.new_address
	`, p.contract, rec.Level, rec.Reason, rec.NewAddress)
	if err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return nil
}

// LoadStatus reads the operational gate state. Returns ErrNotFound if unset.
func (p *Partition) LoadStatus(ctx context.Context) (StatusRecord, error) {
	var rec StatusRecord
	err := p.tx.QueryRowContext(ctx, `
		SELECT level, reason, new_address FROM gate_status WHERE contract = ?
	`, p.contract).Scan(&rec.Level, &rec.Reason, &rec.NewAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return StatusRecord{}, ErrNotFound
	}
	if err != nil {
		return StatusRecord{}, fmt.Errorf("load status: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (InstanceRecord, error) {
	var (
		rec   InstanceRecord
		addr  []byte
		extra string
	)
	if err := row.Scan(&rec.Seq, &addr, &rec.CodeHash, &extra); err != nil {
		return InstanceRecord{}, err
	}
	rec.Address = addr
	rec.Extra = []byte(extra)
	return rec, nil
}
