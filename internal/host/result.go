package host

import (
	"github.com/roach88/factory/internal/ir"
)

// Event types emitted by the host.
const (
	EventInstantiate = "instantiate"
	EventWasm        = "wasm"
	EventTransfer    = "transfer"

	// AttrContractAddress is added to every host event to name its contract.
	AttrContractAddress = "_contract_address"
)

// Result describes a committed job.
type Result struct {
	TxToken string
	Height  uint64

	// Contract is the address created by an Instantiate job.
	Contract string

	// Data is the top-level response data, possibly overridden by a reply.
	Data []byte

	Events []ir.Event
}

// Attribute returns the first attribute named key across all events.
func (r *Result) Attribute(key string) (string, bool) {
	for _, ev := range r.Events {
		for _, attr := range ev.Attributes {
			if attr.Key == key {
				return attr.Value, true
			}
		}
	}
	return "", false
}

// Attributes returns every attribute named key, in emission order.
func (r *Result) Attributes(key string) []string {
	var values []string
	for _, ev := range r.Events {
		for _, attr := range ev.Attributes {
			if attr.Key == key {
				values = append(values, attr.Value)
			}
		}
	}
	return values
}

// wasmEvent wraps a program's attributes. Returns false if there are none.
func wasmEvent(contract string, attrs []ir.Attribute) (ir.Event, bool) {
	if len(attrs) == 0 {
		return ir.Event{}, false
	}
	all := make([]ir.Attribute, 0, len(attrs)+1)
	all = append(all, ir.Attribute{Key: AttrContractAddress, Value: contract})
	all = append(all, attrs...)
	return ir.Event{Type: EventWasm, Attributes: all}, true
}
