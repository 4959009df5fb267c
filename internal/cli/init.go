package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/factory/internal/factory"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Sender string
}

// InitResult is the output of init.
type InitResult struct {
	Factory     string `json:"factory"`
	Admin       string `json:"admin"`
	RequireAuth bool   `json:"require_auth"`
	CodeID      uint64 `json:"code_id"`
	CodeHash    string `json:"code_hash"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Upload the programs and instantiate the factory",
		Long: `Upload the factory and child programs and instantiate the factory.

The factory gets the configured label, and its template points at the
configured child program. The admin defaults to the sender unless the
config names one.

factory.require_auth picks the factory variant that is uploaded. It is
fixed for the life of the factory: editing it later has no effect until
the next init on a fresh database.

Examples:
  factory init --sender @alice
  factory init --sender fx1... --config prod.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChain(rootOpts, cmd, func(ctx context.Context, c *chain) error {
				return runInit(ctx, opts, c)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Sender, "sender", "", "address instantiating the factory (required)")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

func runInit(ctx context.Context, opts *InitOptions, c *chain) error {
	program := factoryProgram(c.cfg)
	fcode, err := c.host.Upload(ctx, program)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to upload factory", err)
	}
	ccode, err := c.host.Upload(ctx, c.cfg.Factory.ChildProgram)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to upload child program", err)
	}
	c.out.VerboseLog("uploaded %s as code %d and %s as code %d", program, fcode.ID, c.cfg.Factory.ChildProgram, ccode.ID)

	sender := c.account(opts.Sender)
	admin := sender
	msg := factory.InstantiateMsg{Code: ccode}
	if c.cfg.Factory.Admin != "" {
		admin = c.account(c.cfg.Factory.Admin)
		msg.Admin = &admin
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	res, err := c.host.Instantiate(ctx, sender, fcode.ID, raw, c.cfg.Factory.Label)
	if err != nil {
		return rejected("failed to instantiate factory", err)
	}

	result := InitResult{
		Factory:     res.Contract,
		Admin:       admin,
		RequireAuth: c.cfg.Factory.RequireAuth,
		CodeID:      ccode.ID,
		CodeHash:    ccode.CodeHash,
	}
	return c.out.Success(result, fmt.Sprintf("factory %s instantiated (admin %s, template code %d)", res.Contract, admin, ccode.ID))
}
