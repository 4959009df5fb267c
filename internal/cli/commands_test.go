package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factory/internal/factory"
	"github.com/roach88/factory/internal/ir"
)

// initFactory runs init as @alice against a fresh database.
func initFactory(t *testing.T) string {
	t.Helper()
	db := tempDB(t)
	var res InitResult
	decodeData(t, mustRun(t, db, "init", "--sender", "@alice", "--format", "json"), &res)
	require.NotEmpty(t, res.Factory)
	return db
}

func TestCommandsBeforeInit(t *testing.T) {
	db := tempDB(t)

	_, err := runCLI(t, db, "create", "--sender", "@alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, db, "list")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInit(t *testing.T) {
	db := tempDB(t)

	var res InitResult
	decodeData(t, mustRun(t, db, "init", "--sender", "@alice", "--format", "json"), &res)
	assert.Equal(t, fx.Account("alice"), res.Admin)
	assert.Equal(t, ir.CodeHash([]byte("registrant")), res.CodeHash)
	_, err := fx.Canonicalize(res.Factory)
	assert.NoError(t, err)
}

func TestInitWithConfiguredAdmin(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "factory.cue")
	require.NoError(t, os.WriteFile(cfg, []byte(`factory: admin: "@carol"`), 0o644))

	var res InitResult
	decodeData(t, mustRun(t, tempDB(t), "--config", cfg, "init", "--sender", "@alice", "--format", "json"), &res)
	assert.Equal(t, fx.Account("carol"), res.Admin)
}

func writeConfig(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "factory.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRequireAuthFixedAtInit(t *testing.T) {
	authCfg := writeConfig(t, `factory: require_auth: true`)

	db := tempDB(t)
	var res InitResult
	decodeData(t, mustRun(t, db, "--config", authCfg, "init", "--sender", "@alice", "--format", "json"), &res)
	assert.True(t, res.RequireAuth)

	// Dropping the flag from the config does not open the factory up.
	_, err := runCLI(t, db, "create", "--sender", "@bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[UNAUTHORIZED]")
	mustRun(t, db, "create", "--sender", "@alice")

	// Adding it later does not close an open factory either.
	openDB := initFactory(t)
	mustRun(t, openDB, "--config", authCfg, "create", "--sender", "@bob")
}

func TestCreateListGet(t *testing.T) {
	db := initFactory(t)

	var first, second CreateResult
	decodeData(t, mustRun(t, db, "create", "--sender", "@alice", "--extra", `{"name":"first"}`, "--format", "json"), &first)
	decodeData(t, mustRun(t, db, "create", "--sender", "@bob", "--extra", `{"name":"second"}`, "--format", "json"), &second)
	require.NotEmpty(t, first.Instance)
	require.NotEmpty(t, second.Instance)
	assert.NotEqual(t, first.Instance, second.Instance)
	assert.Empty(t, first.Failure)
	assert.NotEmpty(t, first.Tx)

	var page ir.PaginatedResponse[ir.Instance[json.RawMessage]]
	decodeData(t, mustRun(t, db, "list", "--format", "json"), &page)
	assert.Equal(t, uint64(2), page.Total)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, first.Instance, page.Entries[0].Contract.Address)
	assert.JSONEq(t, `{"name":"second"}`, string(page.Entries[1].Extra))

	decodeData(t, mustRun(t, db, "list", "--start", "1", "--limit", "5", "--format", "json"), &page)
	assert.Equal(t, uint64(2), page.Total)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, second.Instance, page.Entries[0].Contract.Address)

	var inst ir.Instance[json.RawMessage]
	decodeData(t, mustRun(t, db, "get", first.Instance, "--format", "json"), &inst)
	assert.Equal(t, first.Instance, inst.Contract.Address)
	assert.JSONEq(t, `{"name":"first"}`, string(inst.Extra))

	out := mustRun(t, db, "list")
	assert.Contains(t, out, "2 of 2 instances")
	assert.Contains(t, out, "[0] "+first.Instance)
}

func TestCreateRejectsBadInput(t *testing.T) {
	db := initFactory(t)

	_, err := runCLI(t, db, "create", "--sender", "@alice", "--extra", "{nope")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, db, "create", "--sender", "@alice", "--funds", "ten")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCreateExtraFromFile(t *testing.T) {
	db := initFactory(t)
	path := filepath.Join(t.TempDir(), "extra.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"from":"file"}`), 0o644))

	var res CreateResult
	decodeData(t, mustRun(t, db, "create", "--sender", "@alice", "--extra", "@"+path, "--format", "json"), &res)

	var inst ir.Instance[json.RawMessage]
	decodeData(t, mustRun(t, db, "get", res.Instance, "--format", "json"), &inst)
	assert.JSONEq(t, `{"from":"file"}`, string(inst.Extra))
}

func TestGetUnknownInstance(t *testing.T) {
	db := initFactory(t)

	out, err := runCLI(t, db, "get", fx.Account("nobody"), "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestAdminHandover(t *testing.T) {
	db := initFactory(t)

	var admin factory.AdminResponse
	decodeData(t, mustRun(t, db, "admin", "--format", "json"), &admin)
	assert.Equal(t, fx.Account("alice"), admin.Admin)
	assert.Nil(t, admin.Pending)

	_, err := runCLI(t, db, "admin", "change", "@bob", "--sender", "@mallory")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "[UNAUTHORIZED]")

	mustRun(t, db, "admin", "change", "@bob", "--sender", "@alice")
	decodeData(t, mustRun(t, db, "admin", "--format", "json"), &admin)
	require.NotNil(t, admin.Pending)
	assert.Equal(t, fx.Account("bob"), *admin.Pending)

	_, err = runCLI(t, db, "admin", "accept", "--sender", "@carol")
	assert.Contains(t, err.Error(), "[UNAUTHORIZED]")

	out := mustRun(t, db, "admin", "accept", "--sender", "@bob")
	assert.Contains(t, out, fx.Account("bob")+" is now admin")

	decodeData(t, mustRun(t, db, "admin", "--format", "json"), &admin)
	assert.Equal(t, fx.Account("bob"), admin.Admin)
	assert.Nil(t, admin.Pending)
}

func TestStatusGate(t *testing.T) {
	db := initFactory(t)

	var status factory.StatusResponse
	decodeData(t, mustRun(t, db, "status", "--format", "json"), &status)
	assert.Equal(t, "operational", status.Level)

	_, err := runCLI(t, db, "status", "set", "paused", "--sender", "@bob")
	assert.Contains(t, err.Error(), "[UNAUTHORIZED]")

	mustRun(t, db, "status", "set", "paused", "--reason", "maintenance", "--sender", "@alice")
	decodeData(t, mustRun(t, db, "status", "--format", "json"), &status)
	assert.Equal(t, "paused", status.Level)
	assert.Equal(t, "maintenance", status.Reason)

	_, err = runCLI(t, db, "create", "--sender", "@alice")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "[NOT_OPERATIONAL]")

	mustRun(t, db, "status", "set", "operational", "--sender", "@alice")
	mustRun(t, db, "create", "--sender", "@alice")
}

func TestTemplateChange(t *testing.T) {
	db := initFactory(t)

	_, err := runCLI(t, db, "template", "registrant", "--sender", "@bob")
	assert.Contains(t, err.Error(), "[UNAUTHORIZED]")

	_, err = runCLI(t, db, "template", "no-such-program", "--sender", "@alice")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var code ir.ContractCode
	decodeData(t, mustRun(t, db, "template", "registrant", "--sender", "@alice", "--format", "json"), &code)
	assert.Equal(t, ir.CodeHash([]byte("registrant")), code.CodeHash)
}

func TestExecuteRawMessage(t *testing.T) {
	db := initFactory(t)

	_, err := runCLI(t, db, "execute", "--sender", "@alice", "--msg", `{"bogus":{}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_MESSAGE]")

	mustRun(t, db, "execute", "--sender", "@alice", "--msg", `{"change_admin":{"address":"`+fx.Account("bob")+`"}}`)

	var admin factory.AdminResponse
	decodeData(t, mustRun(t, db, "admin", "--format", "json"), &admin)
	require.NotNil(t, admin.Pending)
	assert.Equal(t, fx.Account("bob"), *admin.Pending)
}

func TestFund(t *testing.T) {
	db := tempDB(t)

	var bal BalanceResult
	decodeData(t, mustRun(t, db, "fund", "@alice", "100ufx", "--format", "json"), &bal)
	assert.Equal(t, fx.Account("alice"), bal.Address)
	assert.Equal(t, []ir.Coin{{Denom: "ufx", Amount: 100}}, bal.Balances)

	decodeData(t, mustRun(t, db, "fund", "@alice", "50ufx", "--format", "json"), &bal)
	assert.Equal(t, []ir.Coin{{Denom: "ufx", Amount: 150}}, bal.Balances)

	out := mustRun(t, db, "fund", "@bob")
	assert.Contains(t, out, "no funds")

	_, err := runCLI(t, db, "fund", "@alice", "lots")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCreateForwardsFunds(t *testing.T) {
	db := initFactory(t)
	mustRun(t, db, "fund", "@alice", "100ufx")

	var res CreateResult
	decodeData(t, mustRun(t, db, "create", "--sender", "@alice", "--funds", "40ufx", "--format", "json"), &res)

	var bal BalanceResult
	decodeData(t, mustRun(t, db, "fund", res.Instance, "--format", "json"), &bal)
	assert.Equal(t, []ir.Coin{{Denom: "ufx", Amount: 40}}, bal.Balances)

	decodeData(t, mustRun(t, db, "fund", "@alice", "--format", "json"), &bal)
	assert.Equal(t, []ir.Coin{{Denom: "ufx", Amount: 60}}, bal.Balances)
}

func TestTraceAfterCreate(t *testing.T) {
	db := initFactory(t)
	mustRun(t, db, "create", "--sender", "@alice")

	var result TraceResult
	decodeData(t, mustRun(t, db, "trace", "--entry", "reply", "--format", "json"), &result)
	require.Len(t, result.Timeline, 1)
	assert.True(t, result.Timeline[0].Ok)
}

func TestConfigShow(t *testing.T) {
	var cfg map[string]any
	decodeData(t, mustRun(t, "custom.db", "config", "--format", "json"), &cfg)
	assert.Equal(t, "custom.db", cfg["database"])
	assert.Equal(t, "fx", cfg["address_prefix"])
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.cue")
	bad := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(good, []byte(`factory: require_auth: true`), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("database: \"x.db\"\naddress_prefix: \"UP\"\n"), 0o644))

	out := mustRun(t, tempDB(t), "config", "validate", good)
	assert.Contains(t, out, "is valid")

	out, err := runCLI(t, tempDB(t), "config", "validate", bad, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string          `json:"code"`
			Details ValidationError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "INVALID_CONFIG", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Details.Message)
}
