// Package child provides Registrant, a minimal child program for factories.
//
// A Registrant reports its own address and an arbitrary extra payload as
// its instantiation data, which is exactly the payload a factory expects in
// a spawn reply. It can also be told to refuse instantiation, which lets a
// caller exercise the factory's failed-spawn path.
package child

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/factory/internal/host"
	"github.com/roach88/factory/internal/ir"
)

// ErrRejected is returned when InitMsg.Reject is set.
var ErrRejected = errors.New("instantiation rejected")

// ProgramName is the name Registrant is uploaded under.
const ProgramName = "registrant"

// InitMsg is the Registrant's instantiate message.
type InitMsg struct {
	// Extra is echoed back in the instantiation data.
	Extra json.RawMessage `json:"extra,omitempty"`

	// Reject makes instantiation fail with this reason.
	Reject string `json:"reject,omitempty"`

	// Omit makes instantiation succeed without any data.
	Omit bool `json:"omit,omitempty"`
}

// Registrant is the child program.
type Registrant struct{}

var _ host.Program = Registrant{}

// Instantiate stores nothing and answers with {"address", "extra"}.
func (Registrant) Instantiate(ctx context.Context, deps host.Deps, env ir.Env, info ir.MessageInfo, raw json.RawMessage) (ir.Response, error) {
	var msg InitMsg
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &msg); err != nil {
			return ir.Response{}, fmt.Errorf("decode init msg: %w", err)
		}
	}
	if msg.Reject != "" {
		return ir.Response{}, fmt.Errorf("%w: %s", ErrRejected, msg.Reject)
	}
	if msg.Omit {
		return ir.Response{}, nil
	}

	extra := msg.Extra
	if len(extra) == 0 {
		extra = json.RawMessage(`{}`)
	}
	data, err := json.Marshal(ir.InstantiateReplyData[json.RawMessage]{
		Address: env.Contract.Address,
		Extra:   extra,
	})
	if err != nil {
		return ir.Response{}, fmt.Errorf("encode reply data: %w", err)
	}
	return ir.Response{Data: data}.AddAttribute("registrant", env.Contract.Address), nil
}

// Execute accepts nothing.
func (Registrant) Execute(ctx context.Context, deps host.Deps, env ir.Env, info ir.MessageInfo, msg json.RawMessage) (ir.Response, error) {
	return ir.Response{}, errors.New("registrant has no execute messages")
}

// Query answers every query with the contract's own address.
func (Registrant) Query(ctx context.Context, deps host.Deps, env ir.Env, msg json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(map[string]string{"address": env.Contract.Address})
}

// Reply is never called: Registrant emits no submessages.
func (Registrant) Reply(ctx context.Context, deps host.Deps, env ir.Env, reply ir.Reply) (ir.Response, error) {
	return ir.Response{}, fmt.Errorf("registrant: unexpected reply %d", reply.ID)
}
