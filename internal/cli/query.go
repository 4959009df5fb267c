package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/factory/internal/factory"
	"github.com/roach88/factory/internal/ir"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var start uint64
	var limit uint8

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered instances",
		Long: `List one page of the instance registry in creation order.

The limit is clamped to 30.

Examples:
  factory list
  factory list --start 30 --limit 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChain(rootOpts, cmd, func(ctx context.Context, c *chain) error {
				msg := factory.QueryMsg{ListInstances: &factory.ListInstancesMsg{
					Pagination: ir.Pagination{Start: start, Limit: limit},
				}}
				var page ir.PaginatedResponse[ir.Instance[json.RawMessage]]
				if err := c.query(ctx, msg, &page); err != nil {
					return err
				}
				return c.out.Success(page, formatPage(page, start))
			})
		},
	}

	cmd.Flags().Uint64Var(&start, "start", 0, "index of the first entry")
	cmd.Flags().Uint8Var(&limit, "limit", ir.MaxLimit, "page size")

	return cmd
}

func formatPage(page ir.PaginatedResponse[ir.Instance[json.RawMessage]], start uint64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d instances\n", len(page.Entries), page.Total)
	for i, inst := range page.Entries {
		fmt.Fprintf(&b, "  [%d] %s %s\n", start+uint64(i), inst.Contract.Address, inst.Extra)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <address>",
		Short: "Look up one registered instance",
		Args:  cobra.ExactArgs(1),
		Example: `  factory get fx1...
  factory get fx1... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChain(rootOpts, cmd, func(ctx context.Context, c *chain) error {
				msg := factory.QueryMsg{InstanceByAddr: &factory.InstanceByAddrMsg{Addr: args[0]}}
				var inst *ir.Instance[json.RawMessage]
				if err := c.query(ctx, msg, &inst); err != nil {
					return err
				}
				if inst == nil {
					if err := c.out.Error("NOT_FOUND", fmt.Sprintf("%s is not a registered instance", args[0]), nil); err != nil {
						return err
					}
					return NewExitError(ExitFailure, "instance not found")
				}
				text := fmt.Sprintf("%s\n  code_hash: %s\n  extra: %s", inst.Contract.Address, inst.Contract.CodeHash, inst.Extra)
				return c.out.Success(inst, text)
			})
		},
	}
	return cmd
}

// NewTemplateCommand creates the template command, which points the
// factory at another uploaded program.
func NewTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	var sender string

	cmd := &cobra.Command{
		Use:   "template <program>",
		Short: "Change the child template",
		Long: `Upload a program if needed and make it the factory's child template.

Only the admin may change the template. Instances already registered keep
the code hash they were created with.

Example:
  factory template registrant --sender @alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChain(rootOpts, cmd, func(ctx context.Context, c *chain) error {
				code, err := c.host.Upload(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to upload program", err)
				}
				msg, err := json.Marshal(factory.ExecuteMsg[json.RawMessage]{ChangeTemplate: &code})
				if err != nil {
					return err
				}
				if _, err := c.execute(ctx, sender, msg); err != nil {
					return err
				}
				return c.out.Success(code, fmt.Sprintf("template set to code %d (%s)", code.ID, code.CodeHash))
			})
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "admin address (required)")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

// NewAdminCommand creates the admin command group.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Show or hand over the factory admin",
		Long: `Show or hand over the factory admin.

Handover takes two steps: the current admin nominates an address with
"change", then the nominee confirms with "accept".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChain(rootOpts, cmd, showAdmin)
		},
	}

	var sender string
	change := &cobra.Command{
		Use:           "change <address>",
		Short:         "Nominate a new admin",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChain(rootOpts, cmd, func(ctx context.Context, c *chain) error {
				nominee := c.account(args[0])
				msg, err := json.Marshal(factory.ExecuteMsg[json.RawMessage]{ChangeAdmin: &factory.ChangeAdminMsg{Address: nominee}})
				if err != nil {
					return err
				}
				if _, err := c.execute(ctx, sender, msg); err != nil {
					return err
				}
				return c.out.Success(map[string]string{"pending": nominee}, fmt.Sprintf("%s nominated as admin", nominee))
			})
		},
	}
	change.Flags().StringVar(&sender, "sender", "", "current admin (required)")
	_ = change.MarkFlagRequired("sender")

	var acceptor string
	accept := &cobra.Command{
		Use:           "accept",
		Short:         "Accept a pending nomination",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChain(rootOpts, cmd, func(ctx context.Context, c *chain) error {
				msg, err := json.Marshal(factory.ExecuteMsg[json.RawMessage]{AcceptAdmin: &struct{}{}})
				if err != nil {
					return err
				}
				if _, err := c.execute(ctx, acceptor, msg); err != nil {
					return err
				}
				admin := c.account(acceptor)
				return c.out.Success(map[string]string{"admin": admin}, fmt.Sprintf("%s is now admin", admin))
			})
		},
	}
	accept.Flags().StringVar(&acceptor, "sender", "", "nominated address (required)")
	_ = accept.MarkFlagRequired("sender")

	cmd.AddCommand(change, accept)
	return cmd
}

func showAdmin(ctx context.Context, c *chain) error {
	var resp factory.AdminResponse
	if err := c.query(ctx, factory.QueryMsg{Admin: &struct{}{}}, &resp); err != nil {
		return err
	}
	text := "admin: " + resp.Admin
	if resp.Pending != nil {
		text += "\npending: " + *resp.Pending
	}
	return c.out.Success(resp, text)
}

// NewStatusCommand creates the status command group.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show or change the operational status",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChain(rootOpts, cmd, func(ctx context.Context, c *chain) error {
				var resp factory.StatusResponse
				if err := c.query(ctx, factory.QueryMsg{Status: &struct{}{}}, &resp); err != nil {
					return err
				}
				text := "status: " + resp.Level
				if resp.Reason != "" {
					text += " (" + resp.Reason + ")"
				}
				if resp.NewAddress != "" {
					text += "\nnew address: " + resp.NewAddress
				}
				return c.out.Success(resp, text)
			})
		},
	}

	var set factory.SetStatusMsg
	var sender string
	setCmd := &cobra.Command{
		Use:   "set <operational|paused|migrating>",
		Short: "Change the operational status",
		Long: `Change the operational status. Only the admin may do this.

A paused or migrating factory refuses to create instances; queries and
admin operations keep working.

Example:
  factory status set paused --reason "maintenance" --sender @alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChain(rootOpts, cmd, func(ctx context.Context, c *chain) error {
				set.Level = args[0]
				msg, err := json.Marshal(factory.ExecuteMsg[json.RawMessage]{SetStatus: &set})
				if err != nil {
					return err
				}
				if _, err := c.execute(ctx, sender, msg); err != nil {
					return err
				}
				return c.out.Success(set, "status set to "+set.Level)
			})
		},
	}
	setCmd.Flags().StringVar(&sender, "sender", "", "admin address (required)")
	_ = setCmd.MarkFlagRequired("sender")
	setCmd.Flags().StringVar(&set.Reason, "reason", "", "reason shown by the status query")
	setCmd.Flags().StringVar(&set.NewAddress, "new-address", "", "where the factory is moving (migrating only)")

	cmd.AddCommand(setCmd)
	return cmd
}
