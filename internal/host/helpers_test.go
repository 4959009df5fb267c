package host_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/child"
	"github.com/roach88/factory/internal/host"
	"github.com/roach88/factory/internal/ir"
	"github.com/roach88/factory/internal/store"
	"github.com/roach88/factory/internal/testutil"
)

var codec = address.MustCodec("fx")

// account returns a deterministic human address filled with b.
func account(b byte) string {
	return codec.MustHumanize(bytes.Repeat([]byte{b}, 20))
}

var (
	alice = account(0xa1)
	bob   = account(0xb0)
)

// spawnMsg asks the spawner to emit child instantiations.
type spawnMsg struct {
	ReplyOn   ir.ReplyOn    `json:"reply_on"`
	Child     child.InitMsg `json:"child"`
	Label     string        `json:"label"`
	Funds     []ir.Coin     `json:"funds,omitempty"`
	Count     int           `json:"count,omitempty"`
	CodeHash  string        `json:"code_hash,omitempty"`
	FailAfter bool          `json:"fail_after,omitempty"`
	FailReply bool          `json:"fail_reply,omitempty"`
}

// spawner is a test program that spawns registrant children and reports
// every reply it receives as an attribute.
type spawner struct{}

func (spawner) Instantiate(ctx context.Context, deps host.Deps, env ir.Env, info ir.MessageInfo, raw json.RawMessage) (ir.Response, error) {
	var code ir.ContractCode
	if err := json.Unmarshal(raw, &code); err != nil {
		return ir.Response{}, err
	}
	return ir.Response{}, deps.Storage.SaveTemplate(ctx, code)
}

func (spawner) Execute(ctx context.Context, deps host.Deps, env ir.Env, info ir.MessageInfo, raw json.RawMessage) (ir.Response, error) {
	var msg spawnMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ir.Response{}, err
	}
	if msg.FailReply {
		// The status slot doubles as a flag telling Reply to fail.
		if err := deps.Storage.SaveStatus(ctx, store.StatusRecord{Level: "fail-reply"}); err != nil {
			return ir.Response{}, err
		}
	}

	code, err := deps.Storage.LoadTemplate(ctx)
	if err != nil {
		return ir.Response{}, err
	}
	if msg.CodeHash != "" {
		code.CodeHash = msg.CodeHash
	}

	childMsg, err := json.Marshal(msg.Child)
	if err != nil {
		return ir.Response{}, err
	}

	count := max(msg.Count, 1)
	resp := ir.Response{}
	for i := 0; i < count; i++ {
		label := msg.Label
		if count > 1 {
			label = fmt.Sprintf("%s-%d", msg.Label, i)
		}
		resp = resp.AddSubMessage(ir.SubMsg{
			ID:      uint64(i + 1),
			ReplyOn: msg.ReplyOn,
			Instantiate: ir.WasmInstantiate{
				CodeID:   code.ID,
				CodeHash: code.CodeHash,
				Msg:      childMsg,
				Funds:    msg.Funds,
				Label:    label,
			},
		})
	}
	if msg.FailAfter {
		return ir.Response{}, errors.New("spawner failed after emitting")
	}
	return resp.AddAttribute("spawned", msg.Label), nil
}

func (spawner) Query(ctx context.Context, deps host.Deps, env ir.Env, raw json.RawMessage) (json.RawMessage, error) {
	code, err := deps.Storage.LoadTemplate(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(code)
}

func (spawner) Reply(ctx context.Context, deps host.Deps, env ir.Env, reply ir.Reply) (ir.Response, error) {
	if status, err := deps.Storage.LoadStatus(ctx); err == nil && status.Level == "fail-reply" {
		return ir.Response{}, errors.New("reply rejected")
	}
	if !reply.Result.IsOk() {
		return ir.Response{}.AddAttribute("reply_err", reply.Result.Err), nil
	}
	var data ir.InstantiateReplyData[json.RawMessage]
	if err := json.Unmarshal(reply.Result.Ok.Data, &data); err != nil {
		return ir.Response{}, err
	}
	return ir.Response{Data: []byte(`"replied"`)}.AddAttribute("reply_ok", data.Address), nil
}

// blockerStarted receives a value each time blocker.Execute is running.
var blockerStarted = make(chan struct{}, 1)

// blocker is a test program whose Execute writes to its partition and then
// waits for its context to end.
type blocker struct{}

func (blocker) Instantiate(ctx context.Context, deps host.Deps, env ir.Env, info ir.MessageInfo, raw json.RawMessage) (ir.Response, error) {
	return ir.Response{}, nil
}

func (blocker) Execute(ctx context.Context, deps host.Deps, env ir.Env, info ir.MessageInfo, raw json.RawMessage) (ir.Response, error) {
	if err := deps.Storage.SaveStatus(ctx, store.StatusRecord{Level: "blocked"}); err != nil {
		return ir.Response{}, err
	}
	blockerStarted <- struct{}{}
	<-ctx.Done()
	return ir.Response{}, ctx.Err()
}

func (blocker) Query(ctx context.Context, deps host.Deps, env ir.Env, raw json.RawMessage) (json.RawMessage, error) {
	rec, err := deps.Storage.LoadStatus(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return json.RawMessage(`null`), nil
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec.Level)
}

func (blocker) Reply(ctx context.Context, deps host.Deps, env ir.Env, reply ir.Reply) (ir.Response, error) {
	return ir.Response{}, errors.New("blocker emits no submessages")
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	host   *host.Host
	store  *store.Store
	spawnC ir.ContractCode
	childC ir.ContractCode
}

func newHost(t *testing.T, s *store.Store, opts ...host.Option) *host.Host {
	t.Helper()
	base := []host.Option{
		host.WithClock(testutil.NewDeterministicClock()),
		host.WithTokenGenerator(testutil.NewSequentialTokens("tx")),
		host.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	h, err := host.New(context.Background(), s, codec, map[string]host.Program{
		"spawner":         spawner{},
		"blocker":         blocker{},
		child.ProgramName: child.Registrant{},
	}, append(base, opts...)...)
	require.NoError(t, err)
	return h
}

// startHost runs h's loop until the test ends.
func startHost(t *testing.T, h *host.Host) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func newFixture(t *testing.T, opts ...host.Option) *fixture {
	t.Helper()
	s := testutil.OpenStore(t)
	h := newHost(t, s, opts...)
	startHost(t, h)

	f := &fixture{t: t, ctx: context.Background(), host: h, store: s}

	var err error
	f.spawnC, err = h.Upload(f.ctx, "spawner")
	require.NoError(t, err)
	f.childC, err = h.Upload(f.ctx, child.ProgramName)
	require.NoError(t, err)
	return f
}

// newSpawner instantiates a spawner whose template is the registrant.
func (f *fixture) newSpawner(label string) string {
	f.t.Helper()
	msg, err := json.Marshal(f.childC)
	require.NoError(f.t, err)
	res, err := f.host.Instantiate(f.ctx, alice, f.spawnC.ID, msg, label)
	require.NoError(f.t, err)
	return res.Contract
}

func (f *fixture) spawn(contract string, msg spawnMsg, funds ...ir.Coin) (*host.Result, error) {
	f.t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(f.t, err)
	return f.host.Execute(f.ctx, alice, contract, raw, funds...)
}

func (f *fixture) contractCount() int {
	f.t.Helper()
	all, err := f.host.Contracts(f.ctx)
	require.NoError(f.t, err)
	return len(all)
}
