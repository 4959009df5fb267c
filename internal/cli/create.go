package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/factory/internal/child"
	"github.com/roach88/factory/internal/factory"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Sender string
	Extra  string
	Funds  []string
}

// CreateResult is the output of create. Exactly one of Instance and
// Failure is set.
type CreateResult struct {
	Tx       string `json:"tx"`
	Height   uint64 `json:"height"`
	Instance string `json:"instance,omitempty"`
	Failure  string `json:"failure,omitempty"`
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Spawn a child instance",
		Long: `Spawn a child instance from the current template.

The extra document is handed to the child, which reports it back; the
factory stores it in the registry next to the child's address. Funds are
sent to the factory and forwarded to the child.

A child that fails to instantiate is reported, and nothing is registered.

Examples:
  factory create --sender @alice --extra '{"name":"first"}'
  factory create --sender @alice --extra @extra.json --funds 100ufx`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChain(rootOpts, cmd, func(ctx context.Context, c *chain) error {
				return runCreate(ctx, opts, c)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Sender, "sender", "", "sender address (required)")
	_ = cmd.MarkFlagRequired("sender")
	cmd.Flags().StringVar(&opts.Extra, "extra", "{}", "extra data as JSON, or @file")
	cmd.Flags().StringSliceVar(&opts.Funds, "funds", nil, "coins forwarded to the child, e.g. 100ufx")

	return cmd
}

func runCreate(ctx context.Context, opts *CreateOptions, c *chain) error {
	extra, err := readJSON(opts.Extra)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --extra", err)
	}
	funds, err := parseCoins(opts.Funds)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --funds", err)
	}

	msg, err := factory.ExecuteCreate(child.InitMsg{Extra: extra}, funds...)
	if err != nil {
		return err
	}
	res, err := c.execute(ctx, opts.Sender, msg, funds...)
	if err != nil {
		return err
	}

	result := CreateResult{Tx: res.TxToken, Height: res.Height}
	if addr, ok := res.Attribute(factory.AttrInstanceAddress); ok {
		result.Instance = addr
		return c.out.Success(result, fmt.Sprintf("instance %s created", addr))
	}

	reason, _ := res.Attribute(factory.AttrInstanceCreationFailed)
	result.Failure = reason
	if err := c.out.Success(result, fmt.Sprintf("instance creation failed: %s", reason)); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "instance creation failed")
}

// NewExecuteCommand creates the execute command, which sends an arbitrary
// execute message to the factory.
func NewExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	var sender, msg string
	var funds []string

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Send a raw execute message to the factory",
		Long: `Send a raw execute message to the factory and print the emitted events.

Example:
  factory execute --sender @alice --msg '{"accept_admin":{}}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChain(rootOpts, cmd, func(ctx context.Context, c *chain) error {
				raw, err := readJSON(msg)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --msg", err)
				}
				coins, err := parseCoins(funds)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --funds", err)
				}
				res, err := c.execute(ctx, sender, raw, coins...)
				if err != nil {
					return err
				}
				text, err := json.MarshalIndent(res.Events, "", "  ")
				if err != nil {
					return err
				}
				return c.out.Success(res.Events, fmt.Sprintf("tx %s at height %d\n%s", res.TxToken, res.Height, text))
			})
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "sender address (required)")
	_ = cmd.MarkFlagRequired("sender")
	cmd.Flags().StringVar(&msg, "msg", "", "execute message as JSON, or @file (required)")
	_ = cmd.MarkFlagRequired("msg")
	cmd.Flags().StringSliceVar(&funds, "funds", nil, "coins sent with the message")

	return cmd
}
