package factory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/factory/internal/host"
	"github.com/roach88/factory/internal/ir"
	"github.com/roach88/factory/internal/store"
)

// CreateInstance emits the spawn submessage for one child. Nothing is
// registered here; registration happens in Reply once the host reports the
// child's address.
func (f *Factory[M, E]) CreateInstance(ctx context.Context, deps host.Deps, env ir.Env, info ir.MessageInfo, cfg InstanceConfig[M]) (ir.Response, error) {
	access, operational := f.gates(deps.Storage)

	if f.cfg.RequireAuth {
		sender, err := canonicalize(deps.API, info.Sender)
		if err != nil {
			return ir.Response{}, err
		}
		if err := access.Assert(ctx, sender); err != nil {
			return ir.Response{}, newError(CodeUnauthorized, err, "create instance: sender %s", info.Sender)
		}
	}

	if err := operational.AssertOperational(ctx); err != nil {
		return ir.Response{}, newError(CodeNotOperational, err, "create instance")
	}

	code, err := loadTemplate(ctx, deps)
	if err != nil {
		return ir.Response{}, err
	}

	childMsg, err := json.Marshal(cfg.Msg)
	if err != nil {
		return ir.Response{}, newError(CodeInvalidMessage, err, "encode child message")
	}

	funds := cfg.Funds
	if funds == nil {
		funds = []ir.Coin{}
	}

	sub := ir.SubMsg{
		ID:      ReplyID,
		ReplyOn: ir.ReplyAlways,
		Instantiate: ir.WasmInstantiate{
			CodeID:   code.ID,
			CodeHash: code.CodeHash,
			Msg:      childMsg,
			Funds:    funds,
			Label:    Label(env.Block),
		},
	}
	return ir.Response{}.AddSubMessage(sub), nil
}

// Label is the host label given to a child spawned in block.
func Label(block ir.BlockInfo) string {
	return fmt.Sprintf("%s%d (height %d)", LabelPrefix, block.Time.Unix(), block.Height)
}

// Reply is the default reply entry point. It accepts only ReplyID; a failed
// spawn is reported through the instance_creation_failed attribute and is
// otherwise a no-op.
func (f *Factory[M, E]) Reply(ctx context.Context, deps host.Deps, env ir.Env, reply ir.Reply) (ir.Response, error) {
	if reply.ID != ReplyID {
		return ir.Response{}, newError(CodeUnexpectedToken, nil, "expecting reply with id %d, got %d", ReplyID, reply.ID)
	}

	if !reply.Result.IsOk() {
		f.logger.Debug("child instantiation failed",
			"contract", env.Contract.Address,
			"error", reply.Result.Err,
		)
		return ir.Response{}.AddAttribute(AttrInstanceCreationFailed, reply.Result.Err), nil
	}

	return f.HandleReply(ctx, deps, *reply.Result.Ok)
}

// HandleReply registers the child described by a successful spawn reply.
// Programs that embed the factory and route replies themselves call it
// after matching ReplyID.
func (f *Factory[M, E]) HandleReply(ctx context.Context, deps host.Deps, resp ir.SubMsgResponse) (ir.Response, error) {
	var data ir.InstantiateReplyData[E]
	if len(resp.Data) == 0 {
		return ir.Response{}, newError(CodeMalformedCompletion, nil, "expecting non-empty data in reply of type %T", data)
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return ir.Response{}, newError(CodeDeserialization, err, "decode %T", data)
	}

	code, err := loadTemplate(ctx, deps)
	if err != nil {
		return ir.Response{}, err
	}

	addr, err := canonicalize(deps.API, data.Address)
	if err != nil {
		return ir.Response{}, err
	}

	extra, err := json.Marshal(data.Extra)
	if err != nil {
		return ir.Response{}, newError(CodeDeserialization, err, "encode extra data")
	}

	rec := store.InstanceRecord{Address: addr, CodeHash: code.CodeHash, Extra: extra}
	if err := deps.Storage.InsertInstance(ctx, rec); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return ir.Response{}, newError(CodeDuplicateKey, err, "instance %s already registered", data.Address)
		}
		return ir.Response{}, err
	}

	human, err := humanize(deps.API, addr)
	if err != nil {
		return ir.Response{}, err
	}

	f.logger.Debug("instance registered", "address", human, "code_hash", code.CodeHash)
	return ir.Response{}.AddAttribute(AttrInstanceAddress, human), nil
}

// ChangeTemplate replaces the template. Always requires the admin,
// regardless of Config.RequireAuth. Existing registry entries keep the
// code hash they were registered with.
func (f *Factory[M, E]) ChangeTemplate(ctx context.Context, deps host.Deps, info ir.MessageInfo, code ir.ContractCode) (ir.Response, error) {
	if err := f.assertAdmin(ctx, deps, info); err != nil {
		return ir.Response{}, err
	}
	if err := deps.Storage.SaveTemplate(ctx, code); err != nil {
		return ir.Response{}, err
	}
	return ir.Response{}, nil
}

func loadTemplate(ctx context.Context, deps host.Deps) (ir.ContractCode, error) {
	code, err := deps.Storage.LoadTemplate(ctx)
	if errors.Is(err, store.ErrNotConfigured) {
		return ir.ContractCode{}, newError(CodeNotConfigured, err, "no template")
	}
	return code, err
}
