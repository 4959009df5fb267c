package host

import (
	"context"
	"encoding/json"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/ir"
	"github.com/roach88/factory/internal/store"
)

// Deps is what the host hands a program for one entry-point call.
// Storage is the program's own partition; writes made through it are part
// of the current invocation's transaction.
type Deps struct {
	Storage *store.Partition
	API     address.API
}

// Program is a contract the host can run. Every entry point runs inside
// the host's transaction for the invocation: returning an error discards
// all of that invocation's writes.
type Program interface {
	Instantiate(ctx context.Context, deps Deps, env ir.Env, info ir.MessageInfo, msg json.RawMessage) (ir.Response, error)
	Execute(ctx context.Context, deps Deps, env ir.Env, info ir.MessageInfo, msg json.RawMessage) (ir.Response, error)
	Query(ctx context.Context, deps Deps, env ir.Env, msg json.RawMessage) (json.RawMessage, error)
	Reply(ctx context.Context, deps Deps, env ir.Env, reply ir.Reply) (ir.Response, error)
}
