package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/factory/internal/factory"
	"github.com/roach88/factory/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			status := "ok"
			if !ev.Ok {
				status = "failed"
			}
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Seq, ev.Entry, ev.Contract, status)
		}
	}
	return buf.String()
}

// aliasOf accepts both "factory" and "@factory".
func aliasOf(name string) string {
	if name == "" || strings.HasPrefix(name, "@") {
		return name
	}
	return "@" + name
}

// matchEvent reports whether ev satisfies the filters of a trace assertion.
func matchEvent(ev TraceEvent, a Assertion) bool {
	if a.Entry != "" && ev.Entry != a.Entry {
		return false
	}
	if a.Contract != "" && ev.Contract != aliasOf(a.Contract) {
		return false
	}
	if a.Ok != nil && ev.Ok != *a.Ok {
		return false
	}
	for key, want := range a.Attributes {
		if !hasAttribute(ev.Attributes, key, want) {
			return false
		}
	}
	return true
}

func describeFilter(a Assertion) string {
	parts := []string{a.Entry}
	if a.Contract != "" {
		parts = append(parts, "on "+aliasOf(a.Contract))
	}
	if a.Ok != nil {
		parts = append(parts, fmt.Sprintf("ok=%t", *a.Ok))
	}
	if len(a.Attributes) > 0 {
		parts = append(parts, fmt.Sprintf("attributes %v", a.Attributes))
	}
	return strings.Join(parts, " ")
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matchEvent(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeFilter(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the entries occur in order. Other
// invocations may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next == len(a.Entries) {
			break
		}
		if ev.Entry != a.Entries[next] {
			continue
		}
		if a.Contract != "" && ev.Contract != aliasOf(a.Contract) {
			continue
		}
		next++
	}
	if next == len(a.Entries) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Entries, " -> "),
		Actual:   fmt.Sprintf("only %d of %d entries found in order, missing %s", next, len(a.Entries), a.Entries[next]),
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if matchEvent(ev, a) {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d x %s", a.Count, describeFilter(a)),
		Actual:   fmt.Sprintf("%d", n),
		Trace:    trace,
	}
}

func (h *Harness) assertInstanceCount(ctx context.Context, a Assertion) error {
	raw, err := json.Marshal(factory.QueryMsg{ListInstances: &factory.ListInstancesMsg{
		Pagination: ir.Pagination{Start: 0, Limit: 0},
	}})
	if err != nil {
		return err
	}
	out, err := h.host.Query(ctx, h.factory, raw)
	if err != nil {
		return fmt.Errorf("list_instances: %w", err)
	}

	var page ir.PaginatedResponse[json.RawMessage]
	if err := json.Unmarshal(out, &page); err != nil {
		return err
	}
	if page.Total == uint64(a.Count) {
		return nil
	}
	return &AssertionError{
		Type:     AssertInstanceCount,
		Expected: fmt.Sprintf("%d instances", a.Count),
		Actual:   fmt.Sprintf("%d instances", page.Total),
	}
}

func (h *Harness) assertInstance(ctx context.Context, a Assertion) error {
	alias := strings.TrimPrefix(a.Instance, "@")
	addr, ok := h.aliases[alias]
	if !ok {
		return &AssertionError{
			Type:     AssertInstance,
			Expected: fmt.Sprintf("instance %s", aliasOf(alias)),
			Actual:   "alias was never registered",
		}
	}

	raw, err := json.Marshal(factory.QueryMsg{InstanceByAddr: &factory.InstanceByAddrMsg{Addr: addr}})
	if err != nil {
		return err
	}
	out, err := h.host.Query(ctx, h.factory, raw)
	if err != nil {
		return fmt.Errorf("instance_by_addr: %w", err)
	}

	var inst *ir.Instance[any]
	if err := json.Unmarshal(out, &inst); err != nil {
		return err
	}
	if inst == nil {
		return &AssertionError{
			Type:     AssertInstance,
			Expected: fmt.Sprintf("instance %s registered", aliasOf(alias)),
			Actual:   "not registered",
		}
	}
	if a.Extra != nil && !subsetMatch(normalize(h.resolve(a.Extra)), inst.Extra) {
		return &AssertionError{
			Type:     AssertInstance,
			Expected: fmt.Sprintf("extra %v", a.Extra),
			Actual:   fmt.Sprintf("extra %v", inst.Extra),
		}
	}
	return nil
}

// evaluateAssertions checks every assertion and returns the failures.
func (h *Harness) evaluateAssertions(ctx context.Context, result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertInstanceCount:
			err = h.assertInstanceCount(ctx, a)
		case AssertInstance:
			err = h.assertInstance(ctx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// subsetMatch reports whether every key of expected appears in actual with
// a matching value. Arrays must match element by element.
func subsetMatch(expected, actual any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			av, ok := act[k]
			if !ok || !subsetMatch(v, av) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !subsetMatch(exp[i], act[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(expected, actual)
	}
}
