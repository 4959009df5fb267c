package harness

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, content string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(content))
	require.NoError(t, err)
	return s
}

func TestRun_ExampleScenariosPass(t *testing.T) {
	scenarios, err := LoadScenarioDir("../../testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("../../testdata/scenarios", "create_and_register.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := FormatTrace(first.Trace)
	require.NoError(t, err)
	b, err := FormatTrace(second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_UnexpectedError(t *testing.T) {
	s := mustParse(t, `
name: unexpected
factory:
  require_auth: true
steps:
  - create: {sender: "@mallory"}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[0]: unexpected error")
	assert.Contains(t, result.Errors[0], "UNAUTHORIZED")
	assert.Contains(t, result.Errors[0], "@mallory")
}

func TestRun_ExpectedErrorButSucceeded(t *testing.T) {
	s := mustParse(t, `
name: succeeded
steps:
  - create: {sender: "@alice"}
    expect: {error: UNAUTHORIZED}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error UNAUTHORIZED, step succeeded")
}

func TestRun_WrongErrorCode(t *testing.T) {
	s := mustParse(t, `
name: wrong_code
factory:
  require_auth: true
steps:
  - create: {sender: "@bob"}
    expect: {error: NOT_OPERATIONAL}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error NOT_OPERATIONAL")
}

func TestRun_AttributeMismatch(t *testing.T) {
	s := mustParse(t, `
name: attrs
steps:
  - create: {sender: "@alice"}
    as: one
    expect:
      attributes: {instance_address: "@bob"}
      absent: [instance_address]
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "missing attribute instance_address=@bob")
	assert.Contains(t, result.Errors[1], "unexpected attribute instance_address")
}

func TestRun_AliasWithoutRegistration(t *testing.T) {
	s := mustParse(t, `
name: rejected_alias
steps:
  - create: {sender: "@alice", reject: nope}
    as: ghost
assertions:
  - type: instance
    instance: ghost
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `"ghost" was not registered`)
	assert.Contains(t, result.Errors[1], "alias was never registered")
}

func TestRun_QueryResultMismatch(t *testing.T) {
	s := mustParse(t, `
name: query_mismatch
steps:
  - query:
      msg: {admin: {}}
    expect:
      result: {admin: "@bob"}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "query answer")
	assert.Contains(t, result.Errors[0], "@alice")
}

func TestRun_CustomCreatorAndAdmin(t *testing.T) {
	s := mustParse(t, `
name: custom_admin
factory:
  creator: "@carol"
  admin: "@dave"
steps:
  - query:
      msg: {admin: {}}
    expect:
      result: {admin: "@dave", pending: null}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
	assert.Equal(t, "@carol", result.Trace[0].Sender)
}

func TestRun_ChangeTemplateByAlias(t *testing.T) {
	s := mustParse(t, `
name: change_template
steps:
  - execute:
      sender: "@alice"
      msg:
        change_template: {id: 1, code_hash: "@code:factory"}
  - query:
      msg: {admin: {}}
    expect:
      result: {admin: "@alice"}
assertions:
  - type: trace_contains
    entry: execute
    contract: "@factory"
    ok: true
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))

	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, map[string]any{
		"change_template": map[string]any{"id": json.Number("1"), "code_hash": "@code:factory"},
	}, last.Msg)
}

func TestAccountAddress(t *testing.T) {
	alice := AccountAddress("alice")
	assert.True(t, strings.HasPrefix(alice, AddressPrefix+"1"))
	assert.Equal(t, alice, AccountAddress("alice"))
	assert.NotEqual(t, alice, AccountAddress("bob"))
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
