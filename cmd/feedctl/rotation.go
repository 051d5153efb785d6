package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"feedplanner/internal/adapter/repo"
	"feedplanner/internal/infra"
	"feedplanner/internal/rotation"
)

func newRotationCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotation",
		Short: "Inspect or reset content rotation cursors.",
	}

	var user, vibe, style string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the cursors of one user, vibe and fashion style.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withSQL(cmd.Context(), func(sql infra.SQLExecutor) error {
				m := rotation.NewManager(repo.NewRotationStore(sql), e.logger)
				st, err := m.Get(cmd.Context(), user, vibe, style)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user=%s vibe=%s fashion_style=%s outfit=%d location=%d accessory=%d generations=%d\n",
					st.UserID, st.Vibe, st.FashionStyle, st.OutfitIndex, st.LocationIndex, st.AccessoryIndex, st.TotalGenerations)
				return nil
			})
		},
	}
	show.Flags().StringVar(&user, "user", "", "user id")
	show.Flags().StringVar(&vibe, "vibe", "", "vibe (template key)")
	show.Flags().StringVar(&style, "style", "", "fashion style")
	_ = show.MarkFlagRequired("user")
	_ = show.MarkFlagRequired("vibe")

	var resetUser, resetVibe, resetStyle string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Zero one combo, or every combo of the user when --vibe and --style are omitted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withSQL(cmd.Context(), func(sql infra.SQLExecutor) error {
				m := rotation.NewManager(repo.NewRotationStore(sql), e.logger)
				n, err := m.Reset(cmd.Context(), resetUser, resetVibe, resetStyle)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %d rotation row(s)\n", n)
				return nil
			})
		},
	}
	reset.Flags().StringVar(&resetUser, "user", "", "user id")
	reset.Flags().StringVar(&resetVibe, "vibe", "", "vibe (template key)")
	reset.Flags().StringVar(&resetStyle, "style", "", "fashion style")
	_ = reset.MarkFlagRequired("user")

	cmd.AddCommand(show, reset)
	return cmd
}
