package ir

import (
	"encoding/json"
	"time"
)

// ContractCode identifies a stored program: the numeric code ID assigned on
// upload and the content hash callers can use to verify what was deployed.
type ContractCode struct {
	ID       uint64 `json:"id"`
	CodeHash string `json:"code_hash"`
}

// ContractLink points at a live contract instance.
type ContractLink struct {
	Address  string `json:"address"`
	CodeHash string `json:"code_hash"`
}

// Empty is the default extra payload: "no extra data".
type Empty struct{}

// Instance is a registered child as returned by queries.
type Instance[E any] struct {
	Contract ContractLink `json:"contract"`
	Extra    E            `json:"extra"`
}

// InstantiateReplyData is the payload a child sets as its instantiation data.
// The factory decodes it from the spawn reply.
type InstantiateReplyData[E any] struct {
	Address string `json:"address"`
	Extra   E      `json:"extra"`
}

// MaxLimit caps the number of entries a single page can return.
const MaxLimit uint8 = 30

// Pagination selects a window of an ordered listing.
type Pagination struct {
	Start uint64 `json:"start"`
	Limit uint8  `json:"limit"`
}

// ClampedLimit returns Limit bounded by MaxLimit.
func (p Pagination) ClampedLimit() uint8 {
	return min(p.Limit, MaxLimit)
}

// PaginatedResponse is one page of a listing plus the listing's total size.
type PaginatedResponse[T any] struct {
	Entries []T    `json:"entries"`
	Total   uint64 `json:"total"`
}

// Coin is an amount of a single denomination.
// Amount is carried as a JSON string so large balances survive JS clients.
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount,string"`
}

// BlockInfo describes the block an invocation executes in.
type BlockInfo struct {
	Height  uint64    `json:"height"`
	Time    time.Time `json:"time"`
	ChainID string    `json:"chain_id"`
}

// ContractInfo identifies the contract being invoked.
type ContractInfo struct {
	Address  string `json:"address"`
	CodeHash string `json:"code_hash"`
}

// Env is the execution environment handed to every entry point.
type Env struct {
	Block    BlockInfo    `json:"block"`
	Contract ContractInfo `json:"contract"`
	TxToken  string       `json:"tx_token"`
}

// MessageInfo describes who sent the message and what funds came with it.
type MessageInfo struct {
	Sender string `json:"sender"`
	Funds  []Coin `json:"funds"`
}

// Attribute is a plaintext key/value pair attached to an invocation's output.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event groups attributes emitted by one contract during an invocation.
type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

// ReplyOn controls when the host redelivers a submessage outcome.
type ReplyOn string

const (
	ReplyAlways  ReplyOn = "always"
	ReplySuccess ReplyOn = "success"
	ReplyError   ReplyOn = "error"
	ReplyNever   ReplyOn = "never"
)

// WasmInstantiate asks the host to spawn a new instance of a stored program.
type WasmInstantiate struct {
	CodeID   uint64          `json:"code_id"`
	CodeHash string          `json:"code_hash"`
	Msg      json.RawMessage `json:"msg"`
	Funds    []Coin          `json:"funds"`
	Label    string          `json:"label"`
}

// SubMsg is an out-of-band request emitted by a contract. ID is the
// correlation token the host echoes back in the Reply.
type SubMsg struct {
	ID          uint64          `json:"id"`
	ReplyOn     ReplyOn         `json:"reply_on"`
	Instantiate WasmInstantiate `json:"instantiate"`
}

// Response is what an entry point hands back to the host.
type Response struct {
	Messages   []SubMsg    `json:"messages,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Data       []byte      `json:"data,omitempty"`
}

// AddAttribute appends a key/value attribute and returns the response.
func (r Response) AddAttribute(key, value string) Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// AddSubMessage appends a submessage and returns the response.
func (r Response) AddSubMessage(msg SubMsg) Response {
	r.Messages = append(r.Messages, msg)
	return r
}

// SubMsgResponse is the successful outcome of a submessage.
type SubMsgResponse struct {
	Events []Event `json:"events"`
	Data   []byte  `json:"data,omitempty"`
}

// SubMsgResult is exactly one of Ok or Err.
type SubMsgResult struct {
	Ok  *SubMsgResponse `json:"ok,omitempty"`
	Err string          `json:"error,omitempty"`
}

// IsOk reports whether the submessage succeeded.
func (r SubMsgResult) IsOk() bool {
	return r.Ok != nil
}

// Reply is the continuation the host delivers after processing a submessage.
type Reply struct {
	ID     uint64       `json:"id"`
	Result SubMsgResult `json:"result"`
}
