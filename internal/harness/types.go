package harness

import "github.com/roach88/factory/internal/ir"

// TraceEvent is one logged invocation as it appears in a scenario trace.
// Addresses and code hashes are replaced by their scenario aliases.
type TraceEvent struct {
	Seq        int64          `json:"seq"`
	Tx         string         `json:"tx"`
	Entry      string         `json:"entry"`
	Contract   string         `json:"contract"`
	Sender     string         `json:"sender"`
	Msg        any            `json:"msg,omitempty"`
	Ok         bool           `json:"ok"`
	Error      string         `json:"error,omitempty"`
	Attributes []ir.Attribute `json:"attributes,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace is the whole invocation log in sequence order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes every failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
