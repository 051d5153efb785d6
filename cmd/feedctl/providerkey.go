package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"feedplanner/internal/infra"
	"feedplanner/internal/infra/credentials"
)

func newProviderKeyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providerkey",
		Short: "Rotate provider API keys stored in the database.",
	}
	var provider, key, by string
	set := &cobra.Command{
		Use:   "set",
		Short: "Store the API key for a provider. Use --key - to read it from stdin.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if key == "-" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key from stdin: %w", err)
				}
				key = strings.TrimSpace(line)
			}
			return e.withSQL(cmd.Context(), func(sql infra.SQLExecutor) error {
				if err := credentials.NewStore(sql).Set(cmd.Context(), provider, key, by); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored %s key (%s)\n", provider, mask(key))
				return nil
			})
		},
	}
	set.Flags().StringVar(&provider, "provider", "", "one of "+strings.Join(credentials.Providers(), ", "))
	set.Flags().StringVar(&key, "key", "", "API key, or - for stdin")
	set.Flags().StringVar(&by, "by", "", "operator recorded with the rotation")
	_ = set.MarkFlagRequired("provider")
	_ = set.MarkFlagRequired("key")
	cmd.AddCommand(set)
	return cmd
}

func mask(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
