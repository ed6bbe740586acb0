package main

import (
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/concierge/mcpserver"
)

func newMCPCmd(flags *globalFlags) *cobra.Command {
	var (
		actor int64
		email string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run as a Model Context Protocol server on stdio",
		Long: `Exposes the assistant to MCP clients as the "chat" and "new_conversation" tools.

Every turn runs as the actor chosen at startup. Logs go to stderr so stdout
carries only JSON-RPC.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			actorID, err := resolveActor(cmd.Context(), rt.store, actor, email)
			if err != nil {
				return err
			}

			srv, err := mcpserver.New(rt.kernel, actorID, rt.logger)
			if err != nil {
				return err
			}

			rt.logger.Info("starting mcp server", "transport", "stdio", "actor", actorID)
			return srv.ServeStdio()
		},
	}

	cmd.Flags().Int64Var(&actor, "actor", 1, "Actor id every turn runs as")
	cmd.Flags().StringVar(&email, "as", "", "Run as the user registered under this email")
	return cmd
}
