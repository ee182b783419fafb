package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		contentID  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transcription runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			var runs []history.Run
			if contentID != "" {
				runs, err = store.ForContent(cmd.Context(), contentID)
			} else {
				runs, err = store.List(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, toRunViews(runs))
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Content", "Status", "Stage", "Method", "Segments", "Took", "Detail"},
				runRows(runs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			summary, err := store.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d runs: %d complete, %d failed, %d running\n", summary.Total, summary.Complete, summary.Failed, summary.Running)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&contentID, "id", "", "Only show runs for this content id")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")

	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete finished runs from the history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()
			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
			return nil
		},
	}
}

type runView struct {
	ID             string  `json:"id"`
	Reference      string  `json:"reference"`
	ContentID      string  `json:"content_id"`
	Status         string  `json:"status"`
	Stage          string  `json:"stage"`
	Method         string  `json:"method,omitempty"`
	TranscriptPath string  `json:"transcript_path,omitempty"`
	Segments       int     `json:"segments"`
	ErrorKind      string  `json:"error_kind,omitempty"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	StartedAt      string  `json:"started_at"`
	FinishedAt     string  `json:"finished_at,omitempty"`
	Seconds        float64 `json:"duration_seconds,omitempty"`
}

func toRunViews(runs []history.Run) []runView {
	views := make([]runView, 0, len(runs))
	for _, r := range runs {
		v := runView{
			ID:             r.ID,
			Reference:      r.Reference,
			ContentID:      r.ContentID,
			Status:         string(r.Status),
			Stage:          r.Stage,
			Method:         r.Method,
			TranscriptPath: r.TranscriptPath,
			Segments:       r.Segments,
			ErrorKind:      r.ErrorKind,
			ErrorMessage:   r.ErrorMessage,
			StartedAt:      r.StartedAt.UTC().Format(time.RFC3339),
			Seconds:        r.Duration().Seconds(),
		}
		if !r.FinishedAt.IsZero() {
			v.FinishedAt = r.FinishedAt.UTC().Format(time.RFC3339)
		}
		views = append(views, v)
	}
	return views
}

func runRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		detail := r.TranscriptPath
		if r.Status == history.StatusFailed {
			detail = r.ErrorKind
		}
		took := "-"
		if d := r.Duration(); d > 0 {
			took = d.Round(100 * time.Millisecond).String()
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.ContentID,
			string(r.Status),
			r.Stage,
			r.Method,
			strconv.Itoa(r.Segments),
			took,
			detail,
		})
	}
	return rows
}
