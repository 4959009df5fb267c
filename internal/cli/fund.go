package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/factory/internal/ir"
)

// BalanceResult is the output of fund.
type BalanceResult struct {
	Address  string    `json:"address"`
	Balances []ir.Coin `json:"balances"`
}

// NewFundCommand creates the fund command.
func NewFundCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund <address> [coin...]",
		Short: "Credit test funds to an account",
		Long: `Credit coins to an account out of thin air and print its balances.
Without coins, only the balances are printed.

Examples:
  factory fund @alice 1000ufx
  factory fund fx1... 5ufx 7uother`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			coins, err := parseCoins(args[1:])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid coin", err)
			}
			return withChain(rootOpts, cmd, func(ctx context.Context, c *chain) error {
				addr := c.account(args[0])
				if len(coins) > 0 {
					if err := c.host.Fund(ctx, addr, coins...); err != nil {
						return WrapExitError(ExitFailure, "fund failed", err)
					}
				}
				balances, err := c.host.Balances(ctx, addr)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read balances", err)
				}
				return c.out.Success(BalanceResult{Address: addr, Balances: balances}, formatBalances(addr, balances))
			})
		},
	}
	return cmd
}

func formatBalances(addr string, coins []ir.Coin) string {
	if len(coins) == 0 {
		return addr + ": no funds"
	}
	parts := make([]string, len(coins))
	for i, c := range coins {
		parts[i] = fmt.Sprintf("%d%s", c.Amount, c.Denom)
	}
	return addr + ": " + strings.Join(parts, ", ")
}
