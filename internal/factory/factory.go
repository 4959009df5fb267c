package factory

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/host"
	"github.com/roach88/factory/internal/ir"
)

// ReplyID is the correlation token on every spawn submessage. It is shared
// by all creations: the host delivers each reply before the next
// invocation starts, so a reply is never ambiguous.
const ReplyID uint64 = 78024480

// LabelPrefix starts the host label of every spawned child.
const LabelPrefix = "factory child instance created at: "

// Attribute keys attached to reply responses.
const (
	AttrInstanceAddress        = "instance_address"
	AttrInstanceCreationFailed = "instance_creation_failed"
)

// Config holds construction-time settings.
type Config struct {
	// RequireAuth restricts create_instance to the admin.
	RequireAuth bool
}

// Option configures a Factory.
type Option func(*settings)

type settings struct {
	gates  GateFactory
	logger *slog.Logger
}

// WithGates replaces the default access and operational gates.
func WithGates(gates GateFactory) Option {
	return func(s *settings) {
		s.gates = gates
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// Factory is a spawn factory program for children instantiated with M
// that report extra data E.
type Factory[M any, E any] struct {
	cfg    Config
	gates  GateFactory
	logger *slog.Logger
}

var _ host.Program = (*Factory[json.RawMessage, json.RawMessage])(nil)

// New creates a factory program.
func New[M any, E any](cfg Config, opts ...Option) *Factory[M, E] {
	s := settings{gates: DefaultGates, logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	return &Factory[M, E]{cfg: cfg, gates: s.gates, logger: s.logger}
}

// Config returns the construction-time settings.
func (f *Factory[M, E]) Config() Config {
	return f.cfg
}

// Instantiate sets the admin (defaulting to the sender) and the initial template.
func (f *Factory[M, E]) Instantiate(ctx context.Context, deps host.Deps, env ir.Env, info ir.MessageInfo, raw json.RawMessage) (ir.Response, error) {
	var msg InstantiateMsg
	if err := decodeMsg(raw, &msg); err != nil {
		return ir.Response{}, err
	}

	adminHuman := info.Sender
	if msg.Admin != nil {
		adminHuman = *msg.Admin
	}
	admin, err := canonicalize(deps.API, adminHuman)
	if err != nil {
		return ir.Response{}, err
	}

	access, _ := f.gates(deps.Storage)
	if err := access.Init(ctx, admin); err != nil {
		return ir.Response{}, err
	}
	if err := deps.Storage.SaveTemplate(ctx, msg.Code); err != nil {
		return ir.Response{}, err
	}

	f.logger.Debug("factory instantiated",
		"contract", env.Contract.Address,
		"admin", adminHuman,
		"code_id", msg.Code.ID,
	)
	return ir.Response{}, nil
}

// Execute routes an execute message to its handler.
func (f *Factory[M, E]) Execute(ctx context.Context, deps host.Deps, env ir.Env, info ir.MessageInfo, raw json.RawMessage) (ir.Response, error) {
	var msg ExecuteMsg[M]
	if err := decodeMsg(raw, &msg); err != nil {
		return ir.Response{}, err
	}

	switch {
	case msg.CreateInstance != nil:
		return f.CreateInstance(ctx, deps, env, info, *msg.CreateInstance)
	case msg.ChangeTemplate != nil:
		return f.ChangeTemplate(ctx, deps, info, *msg.ChangeTemplate)
	case msg.ChangeAdmin != nil:
		return f.changeAdmin(ctx, deps, info, msg.ChangeAdmin.Address)
	case msg.AcceptAdmin != nil:
		return f.acceptAdmin(ctx, deps, info)
	default:
		return f.setStatus(ctx, deps, info, *msg.SetStatus)
	}
}

// Query routes a query message and returns its JSON answer.
func (f *Factory[M, E]) Query(ctx context.Context, deps host.Deps, env ir.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg QueryMsg
	if err := decodeMsg(raw, &msg); err != nil {
		return nil, err
	}

	switch {
	case msg.ListInstances != nil:
		page, err := f.ListInstances(ctx, deps, msg.ListInstances.Pagination)
		if err != nil {
			return nil, err
		}
		return marshalMsg(page)
	case msg.InstanceByAddr != nil:
		inst, err := f.InstanceByAddr(ctx, deps, msg.InstanceByAddr.Addr)
		if err != nil {
			return nil, err
		}
		return marshalMsg(inst)
	case msg.Admin != nil:
		resp, err := f.adminInfo(ctx, deps)
		if err != nil {
			return nil, err
		}
		return marshalMsg(resp)
	default:
		resp, err := f.status(ctx, deps)
		if err != nil {
			return nil, err
		}
		return marshalMsg(resp)
	}
}

// canonicalize maps translator failures to CodeInvalidAddress.
func canonicalize(api address.API, human string) (address.Canonical, error) {
	canon, err := api.Canonicalize(human)
	if err != nil {
		return nil, newError(CodeInvalidAddress, err, "canonicalize %q", human)
	}
	return canon, nil
}

// humanize maps translator failures to CodeInvalidAddress.
func humanize(api address.API, canon address.Canonical) (string, error) {
	human, err := api.Humanize(canon)
	if err != nil {
		return "", newError(CodeInvalidAddress, err, "humanize %s", canon)
	}
	return human, nil
}
