package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/ir"
	"github.com/roach88/factory/internal/metrics"
	"github.com/roach88/factory/internal/store"
)

// DefaultMaxDepth bounds how deeply submessages and replies may nest.
const DefaultMaxDepth = 16

// DefaultChainID is reported in every block unless overridden.
const DefaultChainID = "factory-local"

// Host is the single-writer transactional host.
//
// Thread-safety model:
//   - Upload/Instantiate/Execute/Fund: safe from any goroutine (enqueue + wait)
//   - Query and the read accessors: safe from any goroutine (read-only tx)
//   - Run: must be called from exactly one goroutine
type Host struct {
	store    *store.Store
	api      address.API
	programs map[string]Program
	queue    *jobQueue
	seq      *Clock
	blocks   BlockClock
	tokens   TokenGenerator
	metrics  *metrics.Metrics
	logger   *slog.Logger
	chainID  string
	maxDepth int
}

// Option configures a Host.
type Option func(*Host)

// WithClock sets the block clock. Defaults to SystemClock.
func WithClock(c BlockClock) Option {
	return func(h *Host) {
		h.blocks = c
	}
}

// WithTokenGenerator sets the transaction token generator.
// Defaults to UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(h *Host) {
		h.tokens = g
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Host) {
		h.metrics = m
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		h.logger = l
	}
}

// WithChainID sets the chain ID reported in block info.
func WithChainID(id string) Option {
	return func(h *Host) {
		h.chainID = id
	}
}

// WithMaxDepth bounds submessage nesting.
func WithMaxDepth(n int) Option {
	return func(h *Host) {
		h.maxDepth = n
	}
}

// New creates a host over s. programs maps the names accepted by Upload to
// their implementations. The log clock resumes after the highest logged seq.
func New(ctx context.Context, s *store.Store, api address.API, programs map[string]Program, opts ...Option) (*Host, error) {
	last, err := s.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume log clock: %w", err)
	}

	registry := make(map[string]Program, len(programs))
	for name, p := range programs {
		registry[name] = p
	}

	h := &Host{
		store:    s,
		api:      api,
		programs: registry,
		queue:    newJobQueue(),
		seq:      NewClockAt(last),
		blocks:   SystemClock{},
		tokens:   UUIDv7Generator{},
		logger:   slog.Default(),
		chainID:  DefaultChainID,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// API returns the address translator the host uses.
func (h *Host) API() address.API {
	return h.api
}

// Store returns the underlying store.
func (h *Host) Store() *store.Store {
	return h.store
}

// Run starts the single-writer loop. Blocks until ctx is cancelled or Stop
// is called. Jobs still queued when ctx is cancelled fail with ErrStopped.
func (h *Host) Run(ctx context.Context) error {
	h.logger.Info("host starting", "chain_id", h.chainID)

	for {
		if j, ok := h.queue.TryDequeue(); ok {
			h.process(ctx, j)
			continue
		}

		select {
		case <-ctx.Done():
			h.logger.Info("host stopping: context cancelled")
			for _, j := range h.queue.Drain() {
				j.done <- jobResult{err: ErrStopped}
			}
			return ctx.Err()

		case <-h.queue.Wait():
			// The signal channel closes when the queue is closed, which
			// makes this case fire immediately.
			if h.queue.ClosedAndEmpty() {
				h.logger.Info("host stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run finishes the jobs already queued and returns.
func (h *Host) Stop() {
	h.queue.Close()
}

// Serve runs the loop for the duration of fn, then stops it.
func (h *Host) Serve(ctx context.Context, fn func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		err := h.Run(runCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})
	return g.Wait()
}

func (h *Host) process(ctx context.Context, j *job) {
	if !j.start() {
		h.logger.Debug("job abandoned before start", "kind", j.kind)
		return
	}
	start := time.Now()
	if h.metrics != nil {
		h.metrics.SetQueueDepth(h.queue.Len())
	}

	// The job stops when either the loop or its submitter gives up.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(j.ctx, cancel)
	defer stop()

	res, err := j.fn(ctx)
	if err != nil {
		h.logger.Debug("job failed", "kind", j.kind, "error", err)
	} else {
		h.logger.Debug("job committed", "kind", j.kind, "tx", res.TxToken, "height", res.Height)
	}

	if h.metrics != nil {
		h.metrics.ObserveTransaction(j.kind, start)
		if err == nil && res.Height > 0 {
			h.metrics.SetBlockHeight(res.Height)
		}
	}
	j.done <- jobResult{res: res, err: err}
}

// submit enqueues fn and waits for its result.
//
// Cancelling ctx before the job starts withdraws it, and submit returns
// ctx.Err(). Once the job has started, cancellation aborts its transaction
// and submit waits for the outcome, so a nil error always means committed
// and a non-nil error always means rolled back.
func (h *Host) submit(ctx context.Context, kind string, fn func(ctx context.Context) (*Result, error)) (*Result, error) {
	j := &job{kind: kind, ctx: ctx, fn: fn, done: make(chan jobResult, 1)}
	if !h.queue.Enqueue(j) {
		return nil, ErrStopped
	}
	if h.metrics != nil {
		h.metrics.SetQueueDepth(h.queue.Len())
	}

	select {
	case r := <-j.done:
		return r.res, r.err
	case <-ctx.Done():
		if j.abandon() {
			return nil, ctx.Err()
		}
		r := <-j.done
		return r.res, r.err
	}
}

// Upload registers a built-in program and returns its code reference.
// Uploading the same program twice returns the same code ID.
func (h *Host) Upload(ctx context.Context, program string) (ir.ContractCode, error) {
	if _, ok := h.programs[program]; !ok {
		return ir.ContractCode{}, fmt.Errorf("upload %q: %w", program, ErrUnknownProgram)
	}
	hash := ir.CodeHash([]byte(program))

	var code ir.ContractCode
	_, err := h.submit(ctx, "upload", func(ctx context.Context) (*Result, error) {
		return &Result{}, h.store.Atomic(ctx, func(tx *store.Tx) error {
			id, err := tx.SaveCode(ctx, hash, program)
			if err != nil {
				return err
			}
			code = ir.ContractCode{ID: id, CodeHash: hash}
			return nil
		})
	})
	if err != nil {
		return ir.ContractCode{}, err
	}
	return code, nil
}

// Fund credits coins to addr out of thin air. Used to seed test accounts.
func (h *Host) Fund(ctx context.Context, addr string, coins ...ir.Coin) error {
	canon, err := h.api.Canonicalize(addr)
	if err != nil {
		return err
	}
	_, err = h.submit(ctx, "fund", func(ctx context.Context) (*Result, error) {
		return &Result{}, h.store.Atomic(ctx, func(tx *store.Tx) error {
			for _, c := range coins {
				if err := tx.AddBalance(ctx, canon, c); err != nil {
					return err
				}
			}
			return nil
		})
	})
	return err
}

// Instantiate creates a new contract from codeID in its own transaction.
func (h *Host) Instantiate(ctx context.Context, sender string, codeID uint64, msg json.RawMessage, label string, funds ...ir.Coin) (*Result, error) {
	return h.submit(ctx, ir.EntryInstantiate, func(ctx context.Context) (*Result, error) {
		return h.transact(ctx, func(ctx context.Context, s *session) (*Result, error) {
			addr, data, events, err := s.instantiate(ctx, sender, codeID, "", msg, funds, label)
			if err != nil {
				return nil, err
			}
			return &Result{Contract: addr, Data: data, Events: events}, nil
		})
	})
}

// Execute calls a contract's execute entry point in its own transaction.
// A nil error means the transaction committed, even when ctx was cancelled
// while it ran.
func (h *Host) Execute(ctx context.Context, sender, contract string, msg json.RawMessage, funds ...ir.Coin) (*Result, error) {
	return h.submit(ctx, ir.EntryExecute, func(ctx context.Context) (*Result, error) {
		return h.transact(ctx, func(ctx context.Context, s *session) (*Result, error) {
			data, events, err := s.execute(ctx, sender, contract, msg, funds)
			if err != nil {
				return nil, err
			}
			return &Result{Data: data, Events: events}, nil
		})
	})
}

// transact runs fn as one block: one transaction, one height, one token.
// The invocation log is written after the transaction ends either way.
func (h *Host) transact(ctx context.Context, fn func(ctx context.Context, s *session) (*Result, error)) (*Result, error) {
	s := &session{h: h, token: h.tokens.Generate()}

	var res *Result
	txErr := h.store.Atomic(ctx, func(tx *store.Tx) error {
		height, err := tx.AdvanceHeight(ctx)
		if err != nil {
			return err
		}
		s.tx = tx
		s.block = ir.BlockInfo{Height: height, Time: h.blocks.Now(), ChainID: h.chainID}

		res, err = fn(ctx, s)
		return err
	})

	if err := h.store.WriteLog(context.WithoutCancel(ctx), s.invs, s.outs); err != nil {
		h.logger.Error("write invocation log", "tx", s.token, "error", err)
	}

	if txErr != nil {
		return nil, txErr
	}
	res.TxToken = s.token
	res.Height = s.block.Height
	return res, nil
}

// Query calls a contract's query entry point against committed state.
func (h *Host) Query(ctx context.Context, contract string, msg json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := h.store.View(ctx, func(tx *store.Tx) error {
		c, err := h.loadContract(ctx, tx, contract)
		if err != nil {
			return err
		}
		height, err := tx.Height(ctx)
		if err != nil {
			return err
		}
		env := ir.Env{
			Block:    ir.BlockInfo{Height: height, Time: h.blocks.Now(), ChainID: h.chainID},
			Contract: ir.ContractInfo{Address: c.human, CodeHash: c.codeHash},
		}
		out, err = c.program.Query(ctx, Deps{Storage: tx.Partition(c.canon), API: h.api}, env, msg)
		return err
	})
	if h.metrics != nil {
		h.metrics.ObserveInvocation(ir.EntryQuery, err)
	}
	return out, err
}

// ContractInfo describes a live contract.
type ContractInfo struct {
	Address       string `json:"address"`
	CodeID        uint64 `json:"code_id"`
	CodeHash      string `json:"code_hash"`
	Program       string `json:"program"`
	Label         string `json:"label"`
	Creator       string `json:"creator"`
	CreatedHeight uint64 `json:"created_height"`
}

// Contract describes one contract.
func (h *Host) Contract(ctx context.Context, addr string) (ContractInfo, error) {
	var info ContractInfo
	err := h.store.View(ctx, func(tx *store.Tx) error {
		canon, err := h.api.Canonicalize(addr)
		if err != nil {
			return err
		}
		rec, err := tx.LoadContract(ctx, canon)
		if err != nil {
			return err
		}
		info, err = h.describe(ctx, tx, rec)
		return err
	})
	return info, err
}

// Contracts lists every contract in creation order.
func (h *Host) Contracts(ctx context.Context) ([]ContractInfo, error) {
	infos := []ContractInfo{}
	err := h.store.View(ctx, func(tx *store.Tx) error {
		recs, err := tx.ListContracts(ctx)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			info, err := h.describe(ctx, tx, rec)
			if err != nil {
				return err
			}
			infos = append(infos, info)
		}
		return nil
	})
	return infos, err
}

// Codes lists every uploaded program.
func (h *Host) Codes(ctx context.Context) ([]store.CodeRecord, error) {
	var codes []store.CodeRecord
	err := h.store.View(ctx, func(tx *store.Tx) error {
		var err error
		codes, err = tx.ListCodes(ctx)
		return err
	})
	return codes, err
}

// Balances returns the coins held by addr.
func (h *Host) Balances(ctx context.Context, addr string) ([]ir.Coin, error) {
	canon, err := h.api.Canonicalize(addr)
	if err != nil {
		return nil, err
	}
	var coins []ir.Coin
	err = h.store.View(ctx, func(tx *store.Tx) error {
		coins, err = tx.Balances(ctx, canon)
		return err
	})
	return coins, err
}

func (h *Host) describe(ctx context.Context, tx *store.Tx, rec store.ContractRecord) (ContractInfo, error) {
	code, err := tx.LoadCode(ctx, rec.CodeID)
	if err != nil {
		return ContractInfo{}, err
	}
	human, err := h.api.Humanize(rec.Address)
	if err != nil {
		return ContractInfo{}, err
	}
	creator, err := h.api.Humanize(rec.Creator)
	if err != nil {
		return ContractInfo{}, err
	}
	return ContractInfo{
		Address:       human,
		CodeID:        rec.CodeID,
		CodeHash:      code.CodeHash,
		Program:       code.Program,
		Label:         rec.Label,
		Creator:       creator,
		CreatedHeight: rec.CreatedHeight,
	}, nil
}

// loaded is a contract resolved to its program.
type loaded struct {
	human    string
	canon    address.Canonical
	codeHash string
	program  Program
}

func (h *Host) loadContract(ctx context.Context, tx *store.Tx, addr string) (loaded, error) {
	canon, err := h.api.Canonicalize(addr)
	if err != nil {
		return loaded{}, err
	}
	rec, err := tx.LoadContract(ctx, canon)
	if err != nil {
		return loaded{}, err
	}
	code, err := tx.LoadCode(ctx, rec.CodeID)
	if err != nil {
		return loaded{}, err
	}
	prog, ok := h.programs[code.Program]
	if !ok {
		return loaded{}, fmt.Errorf("contract %s runs %q: %w", addr, code.Program, ErrUnknownProgram)
	}
	human, err := h.api.Humanize(canon)
	if err != nil {
		return loaded{}, err
	}
	return loaded{human: human, canon: canon, codeHash: code.CodeHash, program: prog}, nil
}
