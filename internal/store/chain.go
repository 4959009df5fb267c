package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/ir"
)

// CodeRecord is an uploaded program.
type CodeRecord struct {
	ID       uint64
	CodeHash string
	Program  string
}

// ContractRecord is a live contract instance.
type ContractRecord struct {
	Address       address.Canonical
	CodeID        uint64
	Label         string
	Creator       address.Canonical
	InstanceSeq   uint64
	CreatedHeight uint64
}

// Height returns the current block height.
func (t *Tx) Height(ctx context.Context) (uint64, error) {
	var h uint64
	if err := t.tx.QueryRowContext(ctx, `SELECT height FROM chain WHERE id = 1`).Scan(&h); err != nil {
		return 0, fmt.Errorf("read height: %w", err)
	}
	return h, nil
}

// AdvanceHeight increments the block height and returns the new value.
func (t *Tx) AdvanceHeight(ctx context.Context) (uint64, error) {
	if _, err := t.tx.ExecContext(ctx, `UPDATE chain SET height = height + 1 WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("advance height: %w", err)
	}
	return t.Height(ctx)
}

// NextInstanceSeq reserves the next contract instance sequence number.
func (t *Tx) NextInstanceSeq(ctx context.Context) (uint64, error) {
	if _, err := t.tx.ExecContext(ctx, `UPDATE chain SET instance_seq = instance_seq + 1 WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("next instance seq: %w", err)
	}
	var seq uint64
	if err := t.tx.QueryRowContext(ctx, `SELECT instance_seq FROM chain WHERE id = 1`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next instance seq: %w", err)
	}
	return seq, nil
}

// SaveCode registers a program under its content hash and returns its code
// ID. Uploading the same hash twice returns the original ID.
func (t *Tx) SaveCode(ctx context.Context, codeHash, program string) (uint64, error) {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO codes (code_hash, program) VALUES (?, ?)
		ON CONFLICT(code_hash) DO NOTHING
	`, codeHash, program)
	if err != nil {
		return 0, fmt.Errorf("save code: %w", err)
	}

	var id uint64
	if err := t.tx.QueryRowContext(ctx, `SELECT id FROM codes WHERE code_hash = ?`, codeHash).Scan(&id); err != nil {
		return 0, fmt.Errorf("save code: read id: %w", err)
	}
	return id, nil
}

// LoadCode returns an uploaded program by ID. Returns ErrNotFound if absent.
func (t *Tx) LoadCode(ctx context.Context, id uint64) (CodeRecord, error) {
	rec := CodeRecord{ID: id}
	err := t.tx.QueryRowContext(ctx, `
		SELECT code_hash, program FROM codes WHERE id = ?
	`, id).Scan(&rec.CodeHash, &rec.Program)
	if errors.Is(err, sql.ErrNoRows) {
		return CodeRecord{}, fmt.Errorf("code %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return CodeRecord{}, fmt.Errorf("load code: %w", err)
	}
	return rec, nil
}

// ListCodes returns every uploaded program ordered by ID.
func (t *Tx) ListCodes(ctx context.Context) ([]CodeRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id, code_hash, program FROM codes ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	defer rows.Close()

	codes := []CodeRecord{}
	for rows.Next() {
		var rec CodeRecord
		if err := rows.Scan(&rec.ID, &rec.CodeHash, &rec.Program); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		codes = append(codes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate codes: %w", err)
	}
	return codes, nil
}

// InsertContract records a new contract instance.
// Returns ErrLabelTaken if another contract already uses the label and
// ErrDuplicateKey if the address exists.
func (t *Tx) InsertContract(ctx context.Context, rec ContractRecord) error {
	var taken int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM contracts WHERE label = ?`, rec.Label).Scan(&taken)
	if err != nil {
		return fmt.Errorf("insert contract: check label: %w", err)
	}
	if taken > 0 {
		return fmt.Errorf("label %q: %w", rec.Label, ErrLabelTaken)
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO contracts (address, code_id, label, creator, instance_seq, created_height)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`, []byte(rec.Address), rec.CodeID, rec.Label, []byte(rec.Creator), rec.InstanceSeq, rec.CreatedHeight)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert contract: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("contract %s: %w", rec.Address, ErrDuplicateKey)
	}
	return nil
}

// LoadContract returns a contract by canonical address.
// Returns ErrNotFound if absent.
func (t *Tx) LoadContract(ctx context.Context, addr address.Canonical) (ContractRecord, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT address, code_id, label, creator, instance_seq, created_height
		FROM contracts WHERE address = ?
	`, []byte(addr))

	rec, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ContractRecord{}, fmt.Errorf("contract %s: %w", addr, ErrNotFound)
	}
	if err != nil {
		return ContractRecord{}, fmt.Errorf("load contract: %w", err)
	}
	return rec, nil
}

// ListContracts returns every contract in creation order.
func (t *Tx) ListContracts(ctx context.Context) ([]ContractRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT address, code_id, label, creator, instance_seq, created_height
		FROM contracts ORDER BY instance_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	contracts := []ContractRecord{}
	for rows.Next() {
		rec, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		contracts = append(contracts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return contracts, nil
}

// Balance returns the amount of denom held by addr.
func (t *Tx) Balance(ctx context.Context, addr address.Canonical, denom string) (uint64, error) {
	var amount uint64
	err := t.tx.QueryRowContext(ctx, `
		SELECT amount FROM balances WHERE address = ? AND denom = ?
	`, []byte(addr), denom).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return amount, nil
}

// Balances returns every non-zero balance held by addr, sorted by denom.
func (t *Tx) Balances(ctx context.Context, addr address.Canonical) ([]ir.Coin, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT denom, amount FROM balances
		WHERE address = ? AND amount > 0
		ORDER BY denom ASC
	`, []byte(addr))
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	coins := []ir.Coin{}
	for rows.Next() {
		var c ir.Coin
		if err := rows.Scan(&c.Denom, &c.Amount); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		coins = append(coins, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return coins, nil
}

// AddBalance credits amount of denom to addr.
func (t *Tx) AddBalance(ctx context.Context, addr address.Canonical, coin ir.Coin) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO balances (address, denom, amount) VALUES (?, ?, ?)
		ON CONFLICT(address, denom) DO UPDATE SET amount = amount + excluded.amount
	`, []byte(addr), coin.Denom, coin.Amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", coin.Denom, err)
	}
	return nil
}

// SubBalance debits amount of denom from addr.
// Returns ErrInsufficientFunds if addr holds less than the amount.
func (t *Tx) SubBalance(ctx context.Context, addr address.Canonical, coin ir.Coin) error {
	have, err := t.Balance(ctx, addr, coin.Denom)
	if err != nil {
		return err
	}
	if have < coin.Amount {
		return fmt.Errorf("debit %d%s from %s (have %d): %w", coin.Amount, coin.Denom, addr, have, ErrInsufficientFunds)
	}

	_, err = t.tx.ExecContext(ctx, `
		UPDATE balances SET amount = amount - ? WHERE address = ? AND denom = ?
	`, coin.Amount, []byte(addr), coin.Denom)
	if err != nil {
		return fmt.Errorf("debit %s: %w", coin.Denom, err)
	}
	return nil
}

func scanContract(row rowScanner) (ContractRecord, error) {
	var (
		rec           ContractRecord
		addr, creator []byte
	)
	if err := row.Scan(&addr, &rec.CodeID, &rec.Label, &creator, &rec.InstanceSeq, &rec.CreatedHeight); err != nil {
		return ContractRecord{}, err
	}
	rec.Address = addr
	rec.Creator = creator
	return rec, nil
}
