package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var network bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories, and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			depRows := make([][]string, 0, len(statuses))
			missingRequired := 0
			for _, s := range statuses {
				state := "ok"
				if !s.Available {
					state = "missing"
					if !s.Optional {
						missingRequired++
					}
				}
				depRows = append(depRows, []string{s.Name, s.Command, state, yesNo(s.Optional), firstNonEmpty(s.Version, s.Detail)})
			}
			fmt.Fprintln(out, renderTable([]string{"Dependency", "Command", "State", "Optional", "Detail"}, depRows, nil))

			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Network: network})
			checkRows := make([][]string, 0, len(results))
			for _, r := range results {
				state := "pass"
				if !r.Passed {
					state = "fail"
				}
				checkRows = append(checkRows, []string{r.Name, state, r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Result", "Detail"}, checkRows, nil))

			failed := len(preflight.Failed(results))
			if missingRequired > 0 || failed > 0 {
				return fmt.Errorf("doctor found %d missing dependencies and %d failed checks", missingRequired, failed)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&network, "network", false, "Also probe the caption provider over the network")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
