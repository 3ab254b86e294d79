package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arctir/miniproc/scenario"
)

var rootCmd = &cobra.Command{
	Use:   "miniproc",
	Short: "A simulated preemptive multitasking kernel core",
}

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"scenarios"},
	Short:   "Run end-to-end lifecycle/scheduling scenarios against a live kernel",
	Run: func(cmd *cobra.Command, args []string) {
		all := scenario.Registry()
		selected := all
		if len(flagOnly) > 0 {
			selected = filterScenarios(all, flagOnly)
		}

		results := make([]scenario.Result, 0, len(selected))
		for _, s := range selected {
			results = append(results, s.Run())
		}
		reportResults(results, flagOutput)
	},
}

var listCmd = &cobra.Command{
	Use:   "list-scenarios",
	Short: "List the scenario names run accepts via --only",
	Run: func(cmd *cobra.Command, args []string) {
		for _, s := range scenario.Registry() {
			fmt.Println(s.Name)
		}
	},
}

func filterScenarios(all []scenario.Scenario, names []string) []scenario.Scenario {
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	out := make([]scenario.Scenario, 0, len(names))
	for _, s := range all {
		if want[s.Name] {
			out = append(out, s)
		}
	}
	return out
}
