package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"feedplanner/internal/adapter/repo"
	"feedplanner/internal/infra"
)

func newCreditsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Manage user credit balances.",
	}
	var (
		user   string
		amount int
		reason string
	)
	grant := &cobra.Command{
		Use:   "grant",
		Short: "Add credits to a user's balance.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withSQL(cmd.Context(), func(sql infra.SQLExecutor) error {
				after, err := repo.NewCreditRepository(sql).Grant(cmd.Context(), user, amount, reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "granted %d credit(s) to %s, balance %d\n", amount, user, after)
				return nil
			})
		},
	}
	grant.Flags().StringVar(&user, "user", "", "user id")
	grant.Flags().IntVar(&amount, "amount", 0, "credits to add")
	grant.Flags().StringVar(&reason, "reason", "manual_grant", "ledger reason")
	_ = grant.MarkFlagRequired("user")
	_ = grant.MarkFlagRequired("amount")
	cmd.AddCommand(grant)
	return cmd
}
