package ir

import "encoding/json"

// Entry point names recorded in the invocation log.
const (
	EntryInstantiate = "instantiate"
	EntryExecute     = "execute"
	EntryReply       = "reply"
	EntryQuery       = "query"
)

// Invocation is one logged entry-point call.
//
// Seq orders invocations across the whole log; ID is derived from the
// content so the same call always gets the same ID.
type Invocation struct {
	ID            string          `json:"id"`
	TxToken       string          `json:"tx_token"`
	Seq           int64           `json:"seq"`
	Entry         string          `json:"entry"`
	Contract      string          `json:"contract"`
	Sender        string          `json:"sender"`
	Msg           json.RawMessage `json:"msg"`
	Height        uint64          `json:"height"`
	HostVersion   string          `json:"host_version"`
	SchemaVersion string          `json:"schema_version"`
}

// Outcome records how an invocation ended.
// Exactly one of Ok=true or a non-empty Error holds.
type Outcome struct {
	InvocationID string      `json:"invocation_id"`
	Ok           bool        `json:"ok"`
	Error        string      `json:"error,omitempty"`
	Attributes   []Attribute `json:"attributes"`
	Data         []byte      `json:"data,omitempty"`
}
