package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/factory/internal/address"
	"github.com/roach88/factory/internal/child"
	"github.com/roach88/factory/internal/config"
	"github.com/roach88/factory/internal/factory"
	"github.com/roach88/factory/internal/host"
	"github.com/roach88/factory/internal/ir"
	"github.com/roach88/factory/internal/store"
)

// Factory program names. The auth variant restricts create_instance to the
// admin. A factory runs the variant it was instantiated from for good, so
// editing factory.require_auth only affects the next init.
const (
	FactoryProgram     = "factory"
	FactoryAuthProgram = "factory-auth"
)

// factoryProgram returns the program init uploads for cfg.
func factoryProgram(cfg config.Config) string {
	if cfg.Factory.RequireAuth {
		return FactoryAuthProgram
	}
	return FactoryProgram
}

// ErrNotInitialized is returned when no contract carries the factory label.
var ErrNotInitialized = errors.New("factory not initialized (run 'factory init')")

// chain is an opened database with a host over it.
type chain struct {
	cfg    config.Config
	store  *store.Store
	host   *host.Host
	codec  *address.Codec
	logger *slog.Logger
	out    *OutputFormatter
}

// loadConfig reads --config, falling back to defaults, and applies --db.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		cfg, err = config.LoadFile(opts.Config)
		if err != nil {
			return config.Config{}, err
		}
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, nil
}

func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openChain opens the configured database and builds a host over it.
func openChain(ctx context.Context, opts *RootOptions, cmd *cobra.Command, hostOpts ...host.Option) (*chain, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	codec, err := address.NewCodec(cfg.AddressPrefix)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid address prefix", err)
	}

	logger := newLogger(opts, cmd.ErrOrStderr())

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	programs := map[string]host.Program{
		FactoryProgram: factory.New[json.RawMessage, json.RawMessage](
			factory.Config{},
			factory.WithLogger(logger),
		),
		FactoryAuthProgram: factory.New[json.RawMessage, json.RawMessage](
			factory.Config{RequireAuth: true},
			factory.WithLogger(logger),
		),
		child.ProgramName: child.Registrant{},
	}

	all := append([]host.Option{host.WithLogger(logger)}, hostOpts...)
	h, err := host.New(ctx, st, codec, programs, all...)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to start host", err)
	}

	return &chain{
		cfg:    cfg,
		store:  st,
		host:   h,
		codec:  codec,
		logger: logger,
		out:    newFormatter(opts, cmd),
	}, nil
}

func (c *chain) Close() {
	if err := c.store.Close(); err != nil {
		c.logger.Error("error closing database", "error", err)
	}
}

// withChain opens the chain, runs fn while the host loop serves jobs, and
// closes everything afterwards.
func withChain(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, c *chain) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := openChain(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	return c.host.Serve(ctx, func(ctx context.Context) error {
		return fn(ctx, c)
	})
}

// factoryAddr finds the factory contract by its configured label.
func (c *chain) factoryAddr(ctx context.Context) (string, error) {
	contracts, err := c.host.Contracts(ctx)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to list contracts", err)
	}
	for _, info := range contracts {
		isFactory := info.Program == FactoryProgram || info.Program == FactoryAuthProgram
		if info.Label == c.cfg.Factory.Label && isFactory {
			return info.Address, nil
		}
	}
	return "", WrapExitError(ExitCommandError, fmt.Sprintf("no contract labeled %q", c.cfg.Factory.Label), ErrNotInitialized)
}

// account resolves "@name" to a derived account address; anything else is
// taken as a literal address.
func (c *chain) account(s string) string {
	if name, ok := strings.CutPrefix(s, "@"); ok && name != "" {
		return c.codec.Account(name)
	}
	return s
}

// query sends msg to the factory and decodes the answer into out.
func (c *chain) query(ctx context.Context, msg factory.QueryMsg, out any) error {
	addr, err := c.factoryAddr(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	answer, err := c.host.Query(ctx, addr, raw)
	if err != nil {
		return rejected("query failed", err)
	}
	return json.Unmarshal(answer, out)
}

// execute sends a raw execute message to the factory.
func (c *chain) execute(ctx context.Context, sender string, msg json.RawMessage, funds ...ir.Coin) (*host.Result, error) {
	addr, err := c.factoryAddr(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.host.Execute(ctx, c.account(sender), addr, msg, funds...)
	if err != nil {
		return nil, rejected("execute failed", err)
	}
	return res, nil
}

// rejected turns a contract failure into an exit error that keeps the
// factory error code in its message.
func rejected(message string, err error) error {
	if code := factory.CodeOf(err); code != "" {
		return WrapExitError(ExitFailure, fmt.Sprintf("%s [%s]", message, code), err)
	}
	return WrapExitError(ExitFailure, message, err)
}

var coinPattern = regexp.MustCompile(`^([0-9]+)([a-z][a-z0-9/]*)$`)

// parseCoins parses amounts such as "100ufx".
func parseCoins(specs []string) ([]ir.Coin, error) {
	coins := make([]ir.Coin, 0, len(specs))
	for _, s := range specs {
		m := coinPattern.FindStringSubmatch(strings.TrimSpace(s))
		if m == nil {
			return nil, fmt.Errorf("invalid coin %q: want <amount><denom>", s)
		}
		amount, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coin %q: %w", s, err)
		}
		coins = append(coins, ir.Coin{Denom: m[2], Amount: amount})
	}
	return coins, nil
}

// readJSON returns s as a JSON document, or the contents of the file it
// names when s starts with '@'.
func readJSON(s string) (json.RawMessage, error) {
	data := []byte(s)
	if path, ok := strings.CutPrefix(s, "@"); ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("not valid JSON: %s", s)
	}
	return data, nil
}
