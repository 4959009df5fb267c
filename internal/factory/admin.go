package factory

import (
	"context"
	"errors"

	"github.com/roach88/factory/internal/gate"
	"github.com/roach88/factory/internal/host"
	"github.com/roach88/factory/internal/ir"
	"github.com/roach88/factory/internal/store"
)

func (f *Factory[M, E]) assertAdmin(ctx context.Context, deps host.Deps, info ir.MessageInfo) error {
	sender, err := canonicalize(deps.API, info.Sender)
	if err != nil {
		return err
	}
	access, _ := f.gates(deps.Storage)
	if err := access.Assert(ctx, sender); err != nil {
		return newError(CodeUnauthorized, err, "sender %s is not admin", info.Sender)
	}
	return nil
}

func (f *Factory[M, E]) changeAdmin(ctx context.Context, deps host.Deps, info ir.MessageInfo, nominee string) (ir.Response, error) {
	sender, err := canonicalize(deps.API, info.Sender)
	if err != nil {
		return ir.Response{}, err
	}
	next, err := canonicalize(deps.API, nominee)
	if err != nil {
		return ir.Response{}, err
	}

	access, _ := f.gates(deps.Storage)
	if err := access.ChangeAdmin(ctx, sender, next); err != nil {
		return ir.Response{}, gateError(err, "change admin")
	}
	return ir.Response{}.AddAttribute("pending_admin", nominee), nil
}

func (f *Factory[M, E]) acceptAdmin(ctx context.Context, deps host.Deps, info ir.MessageInfo) (ir.Response, error) {
	sender, err := canonicalize(deps.API, info.Sender)
	if err != nil {
		return ir.Response{}, err
	}

	access, _ := f.gates(deps.Storage)
	if err := access.AcceptAdmin(ctx, sender); err != nil {
		return ir.Response{}, gateError(err, "accept admin")
	}
	return ir.Response{}.AddAttribute("new_admin", info.Sender), nil
}

func (f *Factory[M, E]) setStatus(ctx context.Context, deps host.Deps, info ir.MessageInfo, msg SetStatusMsg) (ir.Response, error) {
	sender, err := canonicalize(deps.API, info.Sender)
	if err != nil {
		return ir.Response{}, err
	}

	_, operational := f.gates(deps.Storage)
	rec := store.StatusRecord{Level: msg.Level, Reason: msg.Reason, NewAddress: msg.NewAddress}
	if err := operational.SetStatus(ctx, sender, rec); err != nil {
		return ir.Response{}, gateError(err, "set status")
	}
	return ir.Response{}.AddAttribute("status", msg.Level), nil
}

func (f *Factory[M, E]) adminInfo(ctx context.Context, deps host.Deps) (AdminResponse, error) {
	access, _ := f.gates(deps.Storage)
	rec, err := access.Admin(ctx)
	if err != nil {
		return AdminResponse{}, err
	}

	var resp AdminResponse
	if len(rec.Admin) > 0 {
		if resp.Admin, err = humanize(deps.API, rec.Admin); err != nil {
			return AdminResponse{}, err
		}
	}
	if len(rec.Pending) > 0 {
		pending, err := humanize(deps.API, rec.Pending)
		if err != nil {
			return AdminResponse{}, err
		}
		resp.Pending = &pending
	}
	return resp, nil
}

func (f *Factory[M, E]) status(ctx context.Context, deps host.Deps) (StatusResponse, error) {
	_, operational := f.gates(deps.Storage)
	rec, err := operational.Status(ctx)
	if err != nil {
		return StatusResponse{}, err
	}
	return StatusResponse{Level: rec.Level, Reason: rec.Reason, NewAddress: rec.NewAddress}, nil
}

// gateError attaches a code to errors from the default gates.
func gateError(err error, op string) error {
	switch {
	case errors.Is(err, gate.ErrUnauthorized):
		return newError(CodeUnauthorized, err, "%s", op)
	case errors.Is(err, gate.ErrInvalidLevel):
		return newError(CodeInvalidMessage, err, "%s", op)
	default:
		return err
	}
}
