package host

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/ir"
	"github.com/roach88/factory/internal/store"
)

// session is the state of one job's transaction.
// Called only from the Run goroutine.
type session struct {
	h     *Host
	tx    *store.Tx
	token string
	block ir.BlockInfo
	depth int

	invs []ir.Invocation
	outs []ir.Outcome
}

func (s *session) env(c loaded) ir.Env {
	return ir.Env{
		Block:    s.block,
		Contract: ir.ContractInfo{Address: c.human, CodeHash: c.codeHash},
		TxToken:  s.token,
	}
}

func (s *session) deps(c loaded) Deps {
	return Deps{Storage: s.tx.Partition(c.canon), API: s.h.api}
}

// invoke runs one entry point and records it for the invocation log.
func (s *session) invoke(entry, contract, sender string, msg []byte, call func() (ir.Response, error)) (ir.Response, error) {
	seq := s.h.seq.Next()
	id, err := ir.InvocationID(s.token, entry, contract, msg, seq)
	if err != nil {
		return ir.Response{}, err
	}

	s.invs = append(s.invs, ir.Invocation{
		ID:            id,
		TxToken:       s.token,
		Seq:           seq,
		Entry:         entry,
		Contract:      contract,
		Sender:        sender,
		Msg:           msg,
		Height:        s.block.Height,
		HostVersion:   ir.HostVersion,
		SchemaVersion: ir.SchemaVersion,
	})

	resp, callErr := call()

	out := ir.Outcome{InvocationID: id, Ok: callErr == nil}
	if callErr != nil {
		out.Error = callErr.Error()
	} else {
		out.Attributes = resp.Attributes
		out.Data = resp.Data
	}
	s.outs = append(s.outs, out)

	if s.h.metrics != nil {
		s.h.metrics.ObserveInvocation(entry, callErr)
	}
	s.h.logger.Debug("invocation",
		"entry", entry,
		"contract", contract,
		"tx", s.token,
		"seq", seq,
		"ok", callErr == nil,
	)
	return resp, callErr
}

// transfer moves funds between accounts.
func (s *session) transfer(ctx context.Context, from, to address.Canonical, funds []ir.Coin) error {
	for _, c := range funds {
		if c.Amount == 0 {
			continue
		}
		if err := s.tx.SubBalance(ctx, from, c); err != nil {
			return err
		}
		if err := s.tx.AddBalance(ctx, to, c); err != nil {
			return err
		}
	}
	return nil
}

// instantiate creates a contract and runs its instantiate entry point,
// followed by any submessages it emits.
func (s *session) instantiate(ctx context.Context, sender string, codeID uint64, codeHash string, msg json.RawMessage, funds []ir.Coin, label string) (string, []byte, []ir.Event, error) {
	senderCanon, err := s.h.api.Canonicalize(sender)
	if err != nil {
		return "", nil, nil, err
	}
	if label == "" {
		return "", nil, nil, ErrEmptyLabel
	}

	code, err := s.tx.LoadCode(ctx, codeID)
	if err != nil {
		return "", nil, nil, err
	}
	if codeHash != "" && codeHash != code.CodeHash {
		return "", nil, nil, fmt.Errorf("code %d: want %s, stored %s: %w", codeID, codeHash, code.CodeHash, ErrCodeHashMismatch)
	}
	prog, ok := s.h.programs[code.Program]
	if !ok {
		return "", nil, nil, fmt.Errorf("code %d runs %q: %w", codeID, code.Program, ErrUnknownProgram)
	}

	instanceSeq, err := s.tx.NextInstanceSeq(ctx)
	if err != nil {
		return "", nil, nil, err
	}
	canon := address.Canonical(ir.ContractAddress(codeID, instanceSeq))
	human, err := s.h.api.Humanize(canon)
	if err != nil {
		return "", nil, nil, err
	}

	err = s.tx.InsertContract(ctx, store.ContractRecord{
		Address:       canon,
		CodeID:        codeID,
		Label:         label,
		Creator:       senderCanon,
		InstanceSeq:   instanceSeq,
		CreatedHeight: s.block.Height,
	})
	if err != nil {
		return "", nil, nil, err
	}

	if err := s.transfer(ctx, senderCanon, canon, funds); err != nil {
		return "", nil, nil, err
	}

	c := loaded{human: human, canon: canon, codeHash: code.CodeHash, program: prog}
	info := ir.MessageInfo{Sender: sender, Funds: nonNilCoins(funds)}
	resp, err := s.invoke(ir.EntryInstantiate, human, sender, msg, func() (ir.Response, error) {
		return prog.Instantiate(ctx, s.deps(c), s.env(c), info, msg)
	})
	if err != nil {
		return "", nil, nil, err
	}

	events := []ir.Event{{
		Type: EventInstantiate,
		Attributes: []ir.Attribute{
			{Key: AttrContractAddress, Value: human},
			{Key: "code_id", Value: strconv.FormatUint(codeID, 10)},
		},
	}}
	if ev, ok := wasmEvent(human, resp.Attributes); ok {
		events = append(events, ev)
	}

	data, subEvents, err := s.dispatch(ctx, c, resp)
	if err != nil {
		return "", nil, nil, err
	}
	return human, data, append(events, subEvents...), nil
}

// execute runs a contract's execute entry point and its submessages.
func (s *session) execute(ctx context.Context, sender, contract string, msg json.RawMessage, funds []ir.Coin) ([]byte, []ir.Event, error) {
	senderCanon, err := s.h.api.Canonicalize(sender)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.h.loadContract(ctx, s.tx, contract)
	if err != nil {
		return nil, nil, err
	}
	if err := s.transfer(ctx, senderCanon, c.canon, funds); err != nil {
		return nil, nil, err
	}

	info := ir.MessageInfo{Sender: sender, Funds: nonNilCoins(funds)}
	resp, err := s.invoke(ir.EntryExecute, c.human, sender, msg, func() (ir.Response, error) {
		return c.program.Execute(ctx, s.deps(c), s.env(c), info, msg)
	})
	if err != nil {
		return nil, nil, err
	}

	var events []ir.Event
	if ev, ok := wasmEvent(c.human, resp.Attributes); ok {
		events = append(events, ev)
	}

	data, subEvents, err := s.dispatch(ctx, c, resp)
	if err != nil {
		return nil, nil, err
	}
	return data, append(events, subEvents...), nil
}

// dispatch processes the submessages of resp, emitted by contract c, in
// order. Each submessage runs inside a savepoint; its outcome is delivered
// back to c according to its ReplyOn mode. A failed submessage that is not
// replied to aborts the whole job.
func (s *session) dispatch(ctx context.Context, c loaded, resp ir.Response) ([]byte, []ir.Event, error) {
	if len(resp.Messages) == 0 {
		return resp.Data, nil, nil
	}
	if s.depth >= s.h.maxDepth {
		return nil, nil, ErrMaxDepth
	}
	s.depth++
	defer func() { s.depth-- }()

	data := resp.Data
	var events []ir.Event

	for _, sub := range resp.Messages {
		var (
			childData   []byte
			childEvents []ir.Event
		)
		spawn := sub.Instantiate
		subErr := s.tx.WithSavepoint(ctx, func() error {
			var err error
			_, childData, childEvents, err = s.instantiate(ctx, c.human, spawn.CodeID, spawn.CodeHash, spawn.Msg, spawn.Funds, spawn.Label)
			return err
		})
		if s.h.metrics != nil {
			s.h.metrics.ObserveSpawn(subErr)
		}

		var result ir.SubMsgResult
		if subErr == nil {
			events = append(events, childEvents...)
			if sub.ReplyOn != ir.ReplyAlways && sub.ReplyOn != ir.ReplySuccess {
				continue
			}
			result.Ok = &ir.SubMsgResponse{Events: nonNilEvents(childEvents), Data: childData}
		} else {
			s.h.logger.Debug("submessage failed", "id", sub.ID, "contract", c.human, "error", subErr)
			if sub.ReplyOn != ir.ReplyAlways && sub.ReplyOn != ir.ReplyError {
				return nil, nil, fmt.Errorf("submessage %d: %w", sub.ID, subErr)
			}
			result.Err = subErr.Error()
		}

		replyData, replyEvents, err := s.reply(ctx, c, ir.Reply{ID: sub.ID, Result: result})
		if err != nil {
			return nil, nil, err
		}
		events = append(events, replyEvents...)
		if replyData != nil {
			data = replyData
		}
	}
	return data, events, nil
}

// reply delivers a submessage outcome to the contract that emitted it.
func (s *session) reply(ctx context.Context, c loaded, reply ir.Reply) ([]byte, []ir.Event, error) {
	msg, err := json.Marshal(reply)
	if err != nil {
		return nil, nil, fmt.Errorf("encode reply: %w", err)
	}

	resp, err := s.invoke(ir.EntryReply, c.human, c.human, msg, func() (ir.Response, error) {
		return c.program.Reply(ctx, s.deps(c), s.env(c), reply)
	})
	if s.h.metrics != nil {
		s.h.metrics.ObserveReply(reply.Result.IsOk())
	}
	if err != nil {
		return nil, nil, err
	}

	var events []ir.Event
	if ev, ok := wasmEvent(c.human, resp.Attributes); ok {
		events = append(events, ev)
	}
	data, subEvents, err := s.dispatch(ctx, c, resp)
	if err != nil {
		return nil, nil, err
	}
	return data, append(events, subEvents...), nil
}

func nonNilCoins(coins []ir.Coin) []ir.Coin {
	if coins == nil {
		return []ir.Coin{}
	}
	return coins
}

func nonNilEvents(events []ir.Event) []ir.Event {
	if events == nil {
		return []ir.Event{}
	}
	return events
}
