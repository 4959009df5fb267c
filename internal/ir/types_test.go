package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagination_ClampedLimit(t *testing.T) {
	tests := []struct {
		limit uint8
		want  uint8
	}{
		{0, 0},
		{5, 5},
		{30, 30},
		{31, 30},
		{255, 30},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Pagination{Limit: tt.limit}.ClampedLimit(), "limit=%d", tt.limit)
	}
}

func TestCoin_AmountEncodedAsString(t *testing.T) {
	data, err := json.Marshal(Coin{Denom: "ucoin", Amount: 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"denom":"ucoin","amount":"42"}`, string(data))

	var c Coin
	require.NoError(t, json.Unmarshal([]byte(`{"denom":"ucoin","amount":"18446744073709551615"}`), &c))
	assert.Equal(t, uint64(18446744073709551615), c.Amount)
}

func TestResponse_Builders(t *testing.T) {
	resp := Response{}.
		AddAttribute("k", "v").
		AddSubMessage(SubMsg{ID: 1, ReplyOn: ReplyAlways})

	require.Len(t, resp.Attributes, 1)
	assert.Equal(t, Attribute{Key: "k", Value: "v"}, resp.Attributes[0])
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, uint64(1), resp.Messages[0].ID)
}

func TestSubMsgResult_IsOk(t *testing.T) {
	assert.True(t, SubMsgResult{Ok: &SubMsgResponse{}}.IsOk())
	assert.False(t, SubMsgResult{Err: "boom"}.IsOk())
}

func TestEmpty_EncodesAsObject(t *testing.T) {
	data, err := json.Marshal(Instance[Empty]{Contract: ContractLink{Address: "a", CodeHash: "h"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"contract":{"address":"a","code_hash":"h"},"extra":{}}`, string(data))
}
