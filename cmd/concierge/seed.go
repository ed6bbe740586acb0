package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newSeedCmd(flags *globalFlags) *cobra.Command {
	var (
		email    string
		fullName string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the database and load the sample catalog",
		Long:  "Creates the schema and, when the catalog is empty, loads the sample products and users. Optionally registers one more customer.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			cfg.Store.Seed = false
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			st, err := openStore(ctx, cfg, newLogger(flags))
			if err != nil {
				return err
			}
			defer st.Close()

			seeded, err := st.Seed(ctx)
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintf(out, "%s Loaded sample catalog into %s\n", color.GreenString("✓"), cfg.Store.Path)
			} else {
				fmt.Fprintf(out, "%s Catalog already present in %s\n", color.YellowString("•"), cfg.Store.Path)
			}

			if email != "" {
				u, err := st.CreateUser(ctx, email, fullName, "")
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s Registered %s as actor %d\n", color.GreenString("✓"), u.Email, u.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "user", "", "Also register a customer with this email")
	cmd.Flags().StringVar(&fullName, "name", "", "Full name of the registered customer")
	return cmd
}
