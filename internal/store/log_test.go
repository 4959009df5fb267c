package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factory/internal/ir"
)

func TestWriteLog_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	inv := createTestInvocation("inv-1", "tx-1", ir.EntryExecute, 1)
	out := ir.Outcome{
		InvocationID: "inv-1",
		Ok:           true,
		Attributes:   []ir.Attribute{{Key: "instance_address", Value: "fx1abc"}},
		Data:         []byte(`{"ok":true}`),
	}
	require.NoError(t, s.WriteLog(ctx, []ir.Invocation{inv}, []ir.Outcome{out}))

	entries, err := s.ReadTx(ctx, "tx-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, "inv-1", got.Invocation.ID)
	assert.Equal(t, `{"a":2,"b":1}`, string(got.Invocation.Msg), "msg stored canonical")
	require.NotNil(t, got.Outcome)
	assert.True(t, got.Outcome.Ok)
	assert.Equal(t, out.Attributes, got.Outcome.Attributes)
	assert.Equal(t, out.Data, got.Outcome.Data)
}

func TestWriteLog_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	inv := createTestInvocation("inv-1", "tx-1", ir.EntryExecute, 1)
	out := ir.Outcome{InvocationID: "inv-1", Ok: false, Error: "NOT_CONFIGURED: template not configured"}

	require.NoError(t, s.WriteLog(ctx, []ir.Invocation{inv}, []ir.Outcome{out}))
	require.NoError(t, s.WriteLog(ctx, []ir.Invocation{inv}, []ir.Outcome{out}))

	entries, err := s.ReadLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Outcome.Ok)
	assert.Equal(t, out.Error, entries[0].Outcome.Error)
	assert.Empty(t, entries[0].Outcome.Attributes)
}

func TestWriteLog_OutcomeRequiresInvocation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.WriteLog(ctx, nil, []ir.Outcome{{InvocationID: "missing", Ok: true}})
	assert.Error(t, err)
}

func TestReadTx_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	invs := []ir.Invocation{
		createTestInvocation("c", "tx-1", ir.EntryReply, 3),
		createTestInvocation("a", "tx-1", ir.EntryExecute, 1),
		createTestInvocation("b", "tx-1", ir.EntryInstantiate, 2),
		createTestInvocation("z", "tx-2", ir.EntryExecute, 4),
	}
	require.NoError(t, s.WriteLog(ctx, invs, nil))

	entries, err := s.ReadTx(ctx, "tx-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Invocation.ID)
	assert.Equal(t, "b", entries[1].Invocation.ID)
	assert.Equal(t, "c", entries[2].Invocation.ID)
	assert.Nil(t, entries[0].Outcome)

	tokens, err := s.TxTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx-1", "tx-2"}, tokens)

	seq, err := s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), seq)
}

func TestReadTx_UnknownTokenReturnsEmpty(t *testing.T) {
	s := createTestStore(t)

	entries, err := s.ReadTx(context.Background(), "nope")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestReadInvocation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteLog(ctx, []ir.Invocation{createTestInvocation("inv-1", "tx-1", ir.EntryQuery, 1)}, nil))

	entry, err := s.ReadInvocation(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, ir.EntryQuery, entry.Invocation.Entry)

	_, err = s.ReadInvocation(ctx, "inv-2")
	assert.True(t, IsNotFound(err))
}

func TestMaxSeq_EmptyLog(t *testing.T) {
	s := createTestStore(t)

	seq, err := s.MaxSeq(context.Background())
	require.NoError(t, err)
	assert.Zero(t, seq)
}

func TestWriteLog_KeepsUndecodableMessages(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	float := createTestInvocation("inv-1", "tx-1", ir.EntryExecute, 1)
	float.Msg = []byte(`{"amount":1.5}`)
	garbage := createTestInvocation("inv-2", "tx-1", ir.EntryExecute, 2)
	garbage.Msg = []byte(`not json`)

	require.NoError(t, s.WriteLog(ctx, []ir.Invocation{float, garbage}, nil))

	entries, err := s.ReadTx(ctx, "tx-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, `{"amount":1.5}`, string(entries[0].Invocation.Msg))
	assert.Equal(t, `"not json"`, string(entries[1].Invocation.Msg))
}
