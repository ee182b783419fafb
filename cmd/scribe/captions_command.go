package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/reference"
)

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "captions <url>",
		Short: "Fetch provider captions only, without a transcription fallback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := reference.ExtractID(args[0])
			if err != nil {
				return err
			}
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.captions.Fetch(cmd.Context(), id)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d segments) %s\n", result.Method, len(result.Segments), result.PersistedPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the transcript as JSON")
	return cmd
}
