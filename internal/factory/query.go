package factory

import (
	"context"
	"encoding/json"

	"github.com/roach88/factory/internal/host"
	"github.com/roach88/factory/internal/ir"
	"github.com/roach88/factory/internal/store"
)

// ListInstances returns one page of the registry in registration order.
// The limit is clamped to ir.MaxLimit; Total is always the registry size.
func (f *Factory[M, E]) ListInstances(ctx context.Context, deps host.Deps, page ir.Pagination) (ir.PaginatedResponse[ir.Instance[E]], error) {
	total, err := deps.Storage.CountInstances(ctx)
	if err != nil {
		return ir.PaginatedResponse[ir.Instance[E]]{}, err
	}

	resp := ir.PaginatedResponse[ir.Instance[E]]{
		Entries: []ir.Instance[E]{},
		Total:   total,
	}
	if page.Start >= total {
		return resp, nil
	}

	records, err := deps.Storage.ListInstances(ctx, page.Start, page.ClampedLimit())
	if err != nil {
		return ir.PaginatedResponse[ir.Instance[E]]{}, err
	}

	for _, rec := range records {
		inst, err := f.toInstance(deps, rec)
		if err != nil {
			return ir.PaginatedResponse[ir.Instance[E]]{}, err
		}
		resp.Entries = append(resp.Entries, inst)
	}
	return resp, nil
}

// InstanceByAddr looks up a registered child. Returns nil when the address
// is valid but not registered.
func (f *Factory[M, E]) InstanceByAddr(ctx context.Context, deps host.Deps, addr string) (*ir.Instance[E], error) {
	canon, err := canonicalize(deps.API, addr)
	if err != nil {
		return nil, err
	}

	rec, err := deps.Storage.GetInstance(ctx, canon)
	if err != nil || rec == nil {
		return nil, err
	}

	inst, err := f.toInstance(deps, *rec)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (f *Factory[M, E]) toInstance(deps host.Deps, rec store.InstanceRecord) (ir.Instance[E], error) {
	human, err := humanize(deps.API, rec.Address)
	if err != nil {
		return ir.Instance[E]{}, err
	}

	var extra E
	if err := json.Unmarshal(rec.Extra, &extra); err != nil {
		return ir.Instance[E]{}, newError(CodeDeserialization, err, "decode stored extra for %s", human)
	}

	return ir.Instance[E]{
		Contract: ir.ContractLink{Address: human, CodeHash: rec.CodeHash},
		Extra:    extra,
	}, nil
}
