package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResumeCmd(flags *globalFlags) *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Finish a checkpointed turn",
		Long:  "Continues a turn from its last checkpoint. Requires graph.checkpoint.interval > 0.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.kernel.Resume(cmd.Context(), args[0])
			out := newPrinter(cmd.OutOrStdout(), true, trace)
			if result != nil {
				out.toolCalls(result.ToolCalls)
			}
			if err != nil {
				return fmt.Errorf("failed to resume %s: %w", args[0], err)
			}
			out.reply(result.Reply)
			return nil
		},
	}

	cmd.Flags().BoolVar(&trace, "trace", false, "Print the tool calls of the resumed turn")
	return cmd
}
