package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is one factory test scenario.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Factory configures the factory under test.
	Factory FactorySetup `yaml:"factory,omitempty"`

	// Steps run in order, each in its own host transaction.
	Steps []Step `yaml:"steps"`

	// Assertions run after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FactorySetup configures how the factory is instantiated.
type FactorySetup struct {
	// Creator instantiates the factory. Defaults to "@alice".
	Creator string `yaml:"creator,omitempty"`

	// Admin is the initial admin. Defaults to the creator.
	Admin string `yaml:"admin,omitempty"`

	// RequireAuth restricts create_instance to the admin.
	RequireAuth bool `yaml:"require_auth,omitempty"`
}

// Step is exactly one of Create, Execute or Query.
type Step struct {
	Create  *CreateStep  `yaml:"create,omitempty"`
	Execute *ExecuteStep `yaml:"execute,omitempty"`
	Query   *QueryStep   `yaml:"query,omitempty"`

	// As names the instance a successful create registers.
	As string `yaml:"as,omitempty"`

	// Expect checks the step's outcome. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// CreateStep sends create_instance for a registrant child.
type CreateStep struct {
	Sender string `yaml:"sender"`

	// Extra is what the child reports back and the registry stores.
	Extra any `yaml:"extra,omitempty"`

	// Reject makes the child refuse instantiation.
	Reject string `yaml:"reject,omitempty"`

	// Omit makes the child succeed without reporting data.
	Omit bool `yaml:"omit,omitempty"`
}

// ExecuteStep sends an arbitrary execute message to the factory.
type ExecuteStep struct {
	Sender string `yaml:"sender"`
	Msg    any    `yaml:"msg"`
}

// QueryStep sends a query message to the factory.
type QueryStep struct {
	Msg any `yaml:"msg"`
}

// Expect describes a step's outcome.
type Expect struct {
	// Error is the expected factory error code. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Attributes must all appear among the step's emitted attributes.
	Attributes map[string]string `yaml:"attributes,omitempty"`

	// Absent lists attribute keys that must not appear.
	Absent []string `yaml:"absent,omitempty"`

	// Result is subset-matched against a query's answer.
	Result any `yaml:"result,omitempty"`
}

// Assertion checks the state left by a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Entry is the entry point name (trace_contains, trace_count).
	Entry string `yaml:"entry,omitempty"`

	// Contract restricts trace assertions to one contract alias.
	Contract string `yaml:"contract,omitempty"`

	// Ok restricts trace assertions to succeeded or failed invocations.
	Ok *bool `yaml:"ok,omitempty"`

	// Attributes are subset-matched against an event's attributes (trace_contains).
	Attributes map[string]string `yaml:"attributes,omitempty"`

	// Count is the expected number (trace_count, instance_count).
	Count int `yaml:"count,omitempty"`

	// Entries is the expected order of entry points (trace_order).
	Entries []string `yaml:"entries,omitempty"`

	// Instance is the alias looked up (instance).
	Instance string `yaml:"instance,omitempty"`

	// Extra is subset-matched against the registered extra (instance).
	Extra any `yaml:"extra,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertInstanceCount = "instance_count"
	AssertInstance      = "instance"
)

// LoadScenario reads and validates a scenario file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarioDir loads every *.yaml file in dir, sorted by file name.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}

	aliases := map[string]bool{"factory": true}
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
		if step.As != "" {
			if aliases[step.As] {
				return fmt.Errorf("steps[%d]: alias %q is already taken", i, step.As)
			}
			aliases[step.As] = true
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	n := 0
	for _, set := range []bool{step.Create != nil, step.Execute != nil, step.Query != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("steps[%d]: exactly one of create, execute or query is required", index)
	}

	switch {
	case step.Create != nil:
		if step.Create.Sender == "" {
			return fmt.Errorf("steps[%d]: create.sender is required", index)
		}
	case step.Execute != nil:
		if step.Execute.Sender == "" {
			return fmt.Errorf("steps[%d]: execute.sender is required", index)
		}
		if step.Execute.Msg == nil {
			return fmt.Errorf("steps[%d]: execute.msg is required", index)
		}
		if step.As != "" {
			return fmt.Errorf("steps[%d]: as is only valid on create", index)
		}
	case step.Query != nil:
		if step.Query.Msg == nil {
			return fmt.Errorf("steps[%d]: query.msg is required", index)
		}
		if step.As != "" {
			return fmt.Errorf("steps[%d]: as is only valid on create", index)
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Entries) == 0 {
			return fmt.Errorf("assertions[%d]: entries list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertInstanceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for instance_count", index)
		}
	case AssertInstance:
		if a.Instance == "" {
			return fmt.Errorf("assertions[%d]: instance is required for instance", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
