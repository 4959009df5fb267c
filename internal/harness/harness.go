package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/child"
	"github.com/roach88/factory/internal/factory"
	"github.com/roach88/factory/internal/host"
	"github.com/roach88/factory/internal/ir"
	"github.com/roach88/factory/internal/store"
	"github.com/roach88/factory/internal/testutil"
)

// Scenario constants.
const (
	// AddressPrefix is the human prefix of every address in a scenario.
	AddressPrefix = "fx"

	// FactoryAlias names the factory contract.
	FactoryAlias = "factory"

	// DefaultCreator instantiates the factory unless the scenario says otherwise.
	DefaultCreator = "@alice"

	factoryProgram = "factory"
)

// Harness runs one scenario against a live host.
type Harness struct {
	host    *host.Host
	store   *store.Store
	factory string
	logger  *slog.Logger

	aliases   map[string]string // alias name -> human address
	codes     map[string]string // "code:<program>" -> code hash
	instances int
}

// AccountAddress derives the address an account alias stands for.
func AccountAddress(name string) string {
	return address.MustCodec(AddressPrefix).Account(name)
}

// Run executes a scenario in a fresh in-memory store and returns its result.
// Failed expectations are reported in the result; the error is reserved for
// failures of the harness itself.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec := address.MustCodec(AddressPrefix)
	programs := map[string]host.Program{
		factoryProgram: factory.New[json.RawMessage, json.RawMessage](
			factory.Config{RequireAuth: scenario.Factory.RequireAuth},
			factory.WithLogger(logger),
		),
		child.ProgramName: child.Registrant{},
	}

	ctx := context.Background()
	hst, err := host.New(ctx, st, codec, programs,
		host.WithClock(testutil.NewDeterministicClock()),
		host.WithTokenGenerator(testutil.NewSequentialTokens("tx")),
		host.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		host:    hst,
		store:   st,
		logger:  logger,
		aliases: map[string]string{},
		codes:   map[string]string{},
	}

	result := NewResult()
	err = hst.Serve(ctx, func(ctx context.Context) error {
		return h.run(ctx, scenario, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, result *Result) error {
	if err := h.setup(ctx, scenario.Factory); err != nil {
		return fmt.Errorf("failed to set up factory: %w", err)
	}

	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i, step, result); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	trace, err := h.trace(ctx)
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	result.Trace = trace

	for _, msg := range h.evaluateAssertions(ctx, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return nil
}

// setup uploads both programs and instantiates the factory.
func (h *Harness) setup(ctx context.Context, cfg FactorySetup) error {
	fcode, err := h.host.Upload(ctx, factoryProgram)
	if err != nil {
		return err
	}
	ccode, err := h.host.Upload(ctx, child.ProgramName)
	if err != nil {
		return err
	}
	h.codes["code:"+factoryProgram] = fcode.CodeHash
	h.codes["code:"+child.ProgramName] = ccode.CodeHash

	creator := cfg.Creator
	if creator == "" {
		creator = DefaultCreator
	}
	msg := factory.InstantiateMsg{Code: ccode}
	if cfg.Admin != "" {
		admin := h.resolveString(cfg.Admin)
		msg.Admin = &admin
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	res, err := h.host.Instantiate(ctx, h.resolveString(creator), fcode.ID, raw, FactoryAlias)
	if err != nil {
		return err
	}
	h.factory = res.Contract
	h.aliases[FactoryAlias] = res.Contract
	return nil
}

func (h *Harness) runStep(ctx context.Context, i int, step Step, result *Result) error {
	var (
		res *host.Result
		out json.RawMessage
		err error
	)

	switch {
	case step.Create != nil:
		msg, merr := h.createMsg(step.Create)
		if merr != nil {
			return merr
		}
		res, err = h.host.Execute(ctx, h.resolveString(step.Create.Sender), h.factory, msg)
	case step.Execute != nil:
		raw, merr := json.Marshal(h.resolve(step.Execute.Msg))
		if merr != nil {
			return merr
		}
		res, err = h.host.Execute(ctx, h.resolveString(step.Execute.Sender), h.factory, raw)
	default:
		raw, merr := json.Marshal(h.resolve(step.Query.Msg))
		if merr != nil {
			return merr
		}
		out, err = h.host.Query(ctx, h.factory, raw)
	}

	if step.Create != nil && err == nil {
		h.nameInstance(i, step, res, result)
	}

	h.logger.Debug("step completed", "step", i, "error", err)
	h.check(i, step.Expect, res, out, err, result)
	return nil
}

func (h *Harness) createMsg(step *CreateStep) (json.RawMessage, error) {
	initMsg := child.InitMsg{Reject: step.Reject, Omit: step.Omit}
	if step.Extra != nil {
		extra, err := json.Marshal(h.resolve(step.Extra))
		if err != nil {
			return nil, err
		}
		initMsg.Extra = extra
	}
	return factory.ExecuteCreate(initMsg)
}

// nameInstance records the alias of the instance a create step registered.
func (h *Harness) nameInstance(i int, step Step, res *host.Result, result *Result) {
	addr, ok := res.Attribute(factory.AttrInstanceAddress)
	if !ok {
		if step.As != "" {
			result.AddError(fmt.Sprintf("steps[%d]: %q was not registered", i, step.As))
		}
		return
	}

	h.instances++
	name := step.As
	if name == "" {
		name = fmt.Sprintf("instance%d", h.instances)
	}
	h.aliases[name] = addr
}

func (h *Harness) check(i int, expect *Expect, res *host.Result, out json.RawMessage, err error, result *Result) {
	if expect == nil {
		expect = &Expect{}
	}

	if expect.Error != "" {
		if err == nil {
			result.AddError(fmt.Sprintf("steps[%d]: expected error %s, step succeeded", i, expect.Error))
			return
		}
		if string(factory.CodeOf(err)) != expect.Error && !strings.Contains(err.Error(), expect.Error) {
			result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %v", i, expect.Error, h.scrub(err.Error())))
		}
		return
	}
	if err != nil {
		result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", i, h.scrub(err.Error())))
		return
	}

	if res != nil {
		var attrs []ir.Attribute
		for _, ev := range res.Events {
			attrs = append(attrs, ev.Attributes...)
		}
		for key, want := range expect.Attributes {
			if !hasAttribute(attrs, key, h.resolveString(want)) {
				result.AddError(fmt.Sprintf("steps[%d]: missing attribute %s=%s", i, key, want))
			}
		}
		for _, key := range expect.Absent {
			if _, ok := res.Attribute(key); ok {
				result.AddError(fmt.Sprintf("steps[%d]: unexpected attribute %s", i, key))
			}
		}
	}

	if expect.Result != nil {
		var actual any
		if err := json.Unmarshal(out, &actual); err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: query answer is not JSON: %v", i, err))
			return
		}
		want := normalize(h.resolve(expect.Result))
		if !subsetMatch(want, actual) {
			result.AddError(fmt.Sprintf("steps[%d]: query answer %s does not match %v", i, h.scrub(string(out)), expect.Result))
		}
	}
}

func hasAttribute(attrs []ir.Attribute, key, value string) bool {
	for _, a := range attrs {
		if a.Key == key && a.Value == value {
			return true
		}
	}
	return false
}

// resolve replaces every "@alias" string in v.
func (h *Harness) resolve(v any) any {
	switch val := v.(type) {
	case string:
		return h.resolveString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = h.resolve(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = h.resolve(elem)
		}
		return out
	default:
		return v
	}
}

// resolveString maps "@name" to an address or code hash. Unknown names are
// accounts and are remembered so the trace can show them by name.
func (h *Harness) resolveString(s string) string {
	name, ok := strings.CutPrefix(s, "@")
	if !ok || name == "" {
		return s
	}
	if hash, ok := h.codes[name]; ok {
		return hash
	}
	if addr, ok := h.aliases[name]; ok {
		return addr
	}
	addr := AccountAddress(name)
	h.aliases[name] = addr
	return addr
}

// scrub replaces every known address and code hash in s by its alias.
func (h *Harness) scrub(s string) string {
	pairs := make([]string, 0, 2*(len(h.aliases)+len(h.codes)))
	for name, addr := range h.aliases {
		pairs = append(pairs, addr, "@"+name)
	}
	for name, hash := range h.codes {
		pairs = append(pairs, hash, "@"+name)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// trace reads the invocation log and renders it with aliases.
func (h *Harness) trace(ctx context.Context) ([]TraceEvent, error) {
	entries, err := h.store.ReadLog(ctx)
	if err != nil {
		return nil, err
	}

	// Contracts that were created and then rolled back have no alias yet.
	spawned := 0
	for _, e := range entries {
		if e.Invocation.Entry != ir.EntryInstantiate || h.known(e.Invocation.Contract) {
			continue
		}
		spawned++
		h.aliases[fmt.Sprintf("spawn%d", spawned)] = e.Invocation.Contract
	}

	trace := make([]TraceEvent, 0, len(entries))
	for _, e := range entries {
		ev, err := h.traceEvent(e)
		if err != nil {
			return nil, err
		}
		trace = append(trace, ev)
	}
	return trace, nil
}

func (h *Harness) known(addr string) bool {
	for _, a := range h.aliases {
		if a == addr {
			return true
		}
	}
	return false
}

func (h *Harness) traceEvent(e store.LogEntry) (TraceEvent, error) {
	inv := e.Invocation
	ev := TraceEvent{
		Seq:      inv.Seq,
		Tx:       inv.TxToken,
		Entry:    inv.Entry,
		Contract: h.scrub(inv.Contract),
		Sender:   h.scrub(inv.Sender),
	}

	msg, err := h.traceMsg(inv)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("invocation %d: %w", inv.Seq, err)
	}
	ev.Msg = msg

	if out := e.Outcome; out != nil {
		ev.Ok = out.Ok
		ev.Error = h.scrub(out.Error)
		for _, a := range out.Attributes {
			ev.Attributes = append(ev.Attributes, ir.Attribute{Key: a.Key, Value: h.scrub(a.Value)})
		}
	}
	return ev, nil
}

// traceMsg decodes the logged message. Replies are summarized, since their
// payload embeds the child's data as opaque bytes.
func (h *Harness) traceMsg(inv ir.Invocation) (any, error) {
	if inv.Entry == ir.EntryReply {
		var reply ir.Reply
		if err := json.Unmarshal(inv.Msg, &reply); err != nil {
			return nil, err
		}
		result := "ok"
		if !reply.Result.IsOk() {
			result = "error"
		}
		return map[string]any{"id": json.Number(fmt.Sprint(reply.ID)), "result": result}, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(h.scrub(string(inv.Msg)))))
	dec.UseNumber()
	var msg any
	if err := dec.Decode(&msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// normalize round-trips v through JSON so it compares equal to decoded answers.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
