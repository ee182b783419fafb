package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/reference"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var (
		sync       bool
		jsonOutput bool
		printText  bool
		noCaptions bool
		lang       string
	)

	cmd := &cobra.Command{
		Use:   "transcribe <url-or-file>",
		Short: "Fetch a transcript, trying captions before speech recognition",
		Long: `Fetch a transcript for an online video or an existing media file.

For URLs, provider captions are tried first. When none are usable the audio is
downloaded, standardized, and transcribed with WhisperX. Progress is streamed
as newline-delimited JSON unless stdout is a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			orch := rt.withOverrides(strings.ToLower(strings.TrimSpace(lang)), rt.cfg.Captions.Enabled && !noCaptions)
			stream, runSync := orch.Run, orch.RunSync
			if isLocalFile(args[0]) {
				stream, runSync = orch.TranscribeFile, orch.TranscribeFileSync
			}
			if sync {
				result, err := runSync(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%d segments) %s\n", result.Method, len(result.Segments), result.PersistedPath)
				if printText {
					fmt.Fprintln(out, result.Text)
				}
				return nil
			}

			renderer := newEventRenderer(cmd.OutOrStdout(), jsonOutput, printText)
			_, err = renderer.consume(stream(cmd.Context(), args[0]))
			return err
		},
	}

	cmd.Flags().BoolVar(&sync, "sync", false, "Wait for the transcript without streaming progress")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Force JSON output even on a terminal")
	cmd.Flags().BoolVar(&printText, "text", false, "Print the transcript text when finished")
	cmd.Flags().BoolVar(&noCaptions, "no-captions", false, "Skip the caption lookup and transcribe the audio")
	cmd.Flags().StringVarP(&lang, "language", "l", "", "Spoken language hint for speech recognition (e.g. en, de)")
	return cmd
}

// isLocalFile reports whether ref names an existing file rather than a URL.
// Anything else goes down the remote path and is rejected there if malformed.
func isLocalFile(ref string) bool {
	if reference.IsRemote(ref) {
		return false
	}
	info, err := os.Stat(ref)
	return err == nil && !info.IsDir()
}
