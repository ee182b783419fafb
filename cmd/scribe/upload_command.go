package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/fileutil"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var (
		outputPath string
		transcribe bool
		jsonOutput bool
		printText  bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Standardize a local media file and optionally transcribe it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve input: %w", err)
			}
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if transcribe {
				renderer := newEventRenderer(cmd.OutOrStdout(), jsonOutput, printText)
				_, err := renderer.consume(rt.orchestrator.TranscribeFile(cmd.Context(), input))
				return err
			}

			artifact, err := rt.fetcher.Convert(cmd.Context(), input)
			if err != nil {
				return err
			}
			dest := strings.TrimSpace(outputPath)
			if dest == "" {
				dest = filepath.Join(filepath.Dir(input), filepath.Base(artifact.Path))
			} else if dest, err = config.ExpandPath(dest); err != nil {
				_ = artifact.Remove()
				return fmt.Errorf("resolve output: %w", err)
			}
			if err := fileutil.MoveFile(artifact.Path, dest); err != nil {
				_ = artifact.Remove()
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination for the standardized audio (default: next to the input)")
	cmd.Flags().BoolVar(&transcribe, "transcribe", false, "Transcribe the file after standardizing it")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Force JSON event output even on a terminal")
	cmd.Flags().BoolVar(&printText, "text", false, "Print the transcript text when finished")
	return cmd
}
