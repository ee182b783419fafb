package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/fileutil"
	"scribe/internal/progress"
	"scribe/internal/reference"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download the audio track with retries and keep the file",
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

			dir := strings.TrimSpace(outputDir)
			if dir == "" {
				dir = "."
			}
			if dir, err = config.ExpandPath(dir); err != nil {
				return fmt.Errorf("resolve output dir: %w", err)
			}

			renderer := newEventRenderer(cmd.ErrOrStderr(), false, false)
			sink := progress.SinkFunc(func(e progress.Event) {
				_ = renderer.render(e)
			})
			artifact, err := rt.fetcher.Download(cmd.Context(), reference.WatchURL(id), sink)
			if err != nil {
				return err
			}
			dest := filepath.Join(dir, filepath.Base(artifact.Path))
			if err := fileutil.MoveFile(artifact.Path, dest); err != nil {
				_ = artifact.Remove()
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dest)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "dir", "d", "", "Directory that receives the audio file (default: current directory)")
	return cmd
}
